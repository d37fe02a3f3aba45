package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/wotracker/internal/backend"
	"github.com/claude/wotracker/internal/config"
	"github.com/claude/wotracker/internal/importer"
	"github.com/claude/wotracker/internal/ingest/alpha"
	"github.com/claude/wotracker/internal/logging"
	"github.com/claude/wotracker/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	path := flag.String("path", "", "export file or directory of exports (required)")
	login := flag.String("login", "", "login of the user to import for (required)")
	tz := flag.String("tz", "Local", "time zone the export timestamps are in")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the database")
	flag.Parse()

	if *path == "" || *login == "" {
		fmt.Fprintf(os.Stderr, "Usage: wotracker-import -config config.yaml -login you@example.com -path exports/ [-tz Europe/Berlin] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

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

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Error("unknown time zone", "tz", *tz, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	db, closeDB, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	userID, err := db.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}
	st := store.New(db, log.With("user_id", userID))
	if err := st.Load(ctx, userID); err != nil {
		log.Error("failed to load user data", "error", err)
		os.Exit(1)
	}

	sink := importer.ProviderSink{Provider: alpha.NewProvider(log, loc), Dst: st}
	stats, err := importer.New(sink, nil, log, *dryRun).Import(ctx, *path)
	printStats(log, stats)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	if u := st.Unsynced(); u.Total() > 0 {
		log.Error("some sessions were not persisted", "sessions", u.Sessions)
		os.Exit(1)
	}
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_errored", stats.FilesErrored,
		"sessions_received", stats.SessionsReceived,
		"sessions_inserted", stats.SessionsInserted,
		"sessions_skipped", stats.SessionsSkipped,
		"sets_received", stats.SetsReceived,
	)
}
