package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"tailscale.com/tsnet"

	"github.com/claude/wotracker/internal/backend"
	"github.com/claude/wotracker/internal/config"
	"github.com/claude/wotracker/internal/logging"
	"github.com/claude/wotracker/internal/mcp"
	"github.com/claude/wotracker/internal/metrics"
	"github.com/claude/wotracker/internal/nutrition"
	"github.com/claude/wotracker/internal/server"
	"github.com/claude/wotracker/internal/storage"
	"github.com/claude/wotracker/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// syncInterval is how often unsynced changes are retried in the background.
const syncInterval = time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	log.Info("wotracker starting", "version", Version, "driver", cfg.Database.Driver)

	if *migrateOnly {
		if cfg.Database.Driver == config.DriverSQLite {
			log.Info("migrate-only: sqlite schema is applied on open, nothing to do")
			return
		}
		if err := storage.RunMigrations(cfg.Database.DSN(), cfg.Server.MigrationsPath); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrate-only: exiting")
		return
	}

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	m := metrics.New(prometheus.DefaultRegisterer)
	stores := store.NewRegistry(db, log, store.WithMetrics(m))

	opts := []server.Option{
		server.WithAPIKey(cfg.Auth.APIKey),
		server.WithMetrics(m),
	}
	if !cfg.Tailscale.Enabled {
		opts = append(opts, server.WithDevLogin(cfg.Auth.DevLogin))
	}
	if cfg.Nutrition.Enabled() {
		nc, err := nutrition.New(cfg.Nutrition, log.With("component", "nutrition"), m)
		if err != nil {
			return fmt.Errorf("nutrition: %w", err)
		}
		opts = append(opts, server.WithNutrition(nc))
		log.Info("nutrition analysis enabled", "model", cfg.Nutrition.Model)
	}
	if cfg.MCP.Enabled {
		ms := mcp.New(mcp.NewStoreSource(stores), Version, log.With("component", "mcp"))
		opts = append(opts, server.WithMCP(mcp.NewHTTPHandler(ms, server.UserIDFromContext)))
		log.Info("mcp enabled", "path", "/mcp")
	}
	srv := server.New(db, stores, log, opts...)

	// tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		ts := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := ts.Start(); err != nil {
			return fmt.Errorf("tsnet start: %w", err)
		}
		defer ts.Close()

		lc, err := ts.LocalClient()
		if err != nil {
			return fmt.Errorf("tsnet local client: %w", err)
		}
		srv.SetTailscale(lc)

		listener, err = ts.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)", "dev_login", cfg.Auth.DevLogin)
	}

	go syncLoop(ctx, stores, log)

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if err := stores.SyncAll(shutdownCtx); err != nil {
		log.Warn("final sync incomplete", "error", err)
	}
	return nil
}

// syncLoop retries unsynced changes until ctx is done.
func syncLoop(ctx context.Context, stores *store.Registry, log *slog.Logger) {
	t := time.NewTicker(syncInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := stores.SyncAll(ctx); err != nil {
				log.Warn("background sync incomplete", "error", err)
			}
		}
	}
}
