// Command wotracker-cli drives a wotracker server from the terminal: start
// a session, log sets, run the rest timer and review history.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/wotracker/internal/client"
	"github.com/claude/wotracker/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	serverURL string
	apiKey    string
	verbose   bool

	rootCmd = &cobra.Command{
		Use:           "wotracker-cli",
		Short:         "Log workouts against a wotracker server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("WOTRACKER_SERVER", "http://localhost:8080"), "server URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("WOTRACKER_API_KEY"), "API key for imports")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(
		statusCmd, startCmd, logCmd, skipCmd, swapCmd, notesCmd, completeCmd, abandonCmd, restCmd,
		dashboardCmd, historyCmd, progressCmd, syncCmd, signoutCmd,
		importCmd, mcpCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithAPIKey(apiKey))
}

// newLogger logs to stderr so stdout stays clean for output and MCP.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(logging.NewHandler(os.Stderr, "text", level))
}

// timeout bounds one API round trip.
func timeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func warnUnsynced(w io.Writer, unsynced bool) {
	if unsynced {
		fmt.Fprintln(w, "warning: saved on the server but not yet persisted; it will retry")
	}
}
