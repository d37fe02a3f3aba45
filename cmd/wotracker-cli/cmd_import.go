package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/claude/wotracker/internal/importer"
	"github.com/claude/wotracker/internal/mcp"
)

var (
	importDryRun bool
	importState  string
	importAll    bool
)

var (
	importCmd = &cobra.Command{
		Use:   "import <file or directory>",
		Short: "Upload Alpha Progression CSV exports (.csv, .csv.gz)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP on stdio, backed by the server's REST API",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}
)

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and count without uploading")
	importCmd.Flags().StringVar(&importState, "state-dir", "", "where to remember uploaded files (default ~/.wotracker)")
	importCmd.Flags().BoolVar(&importAll, "all", false, "upload every file, even unchanged ones")
}

func runImport(cmd *cobra.Command, args []string) error {
	log := newLogger()

	var state *importer.StateDB
	if !importAll && !importDryRun {
		dir := importState
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("finding home directory: %w", err)
			}
			dir = filepath.Join(home, ".wotracker")
		}
		var err error
		state, err = importer.OpenStateDB(dir)
		if err != nil {
			return err
		}
		defer state.Close()
	}

	stats, err := importer.New(newClient(), state, log, importDryRun).Import(cmd.Context(), args[0])
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "files: %d imported, %d unchanged, %d failed\n", stats.FilesProcessed, stats.FilesSkipped, stats.FilesErrored)
	fmt.Fprintf(out, "sessions: %d received, %d new, %d already imported; %d sets\n",
		stats.SessionsReceived, stats.SessionsInserted, stats.SessionsSkipped, stats.SetsReceived)
	if err != nil {
		return err
	}
	if stats.FilesErrored > 0 {
		return fmt.Errorf("%d files failed", stats.FilesErrored)
	}
	return nil
}

func runMCP(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	s := mcp.New(mcp.NewRemoteSource(newClient()), Version, log)
	// The server resolves the caller, so no local user ID is needed.
	return mcp.ServeStdio(s, 0)
}
