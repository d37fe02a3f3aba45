// Package backend opens the configured repository implementation.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/wotracker/internal/config"
	"github.com/claude/wotracker/internal/localstore"
	"github.com/claude/wotracker/internal/repository"
	"github.com/claude/wotracker/internal/storage"
)

// Backend is what the server needs from storage.
type Backend interface {
	repository.Repository
	repository.Admin
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

var (
	_ Backend = (*storage.DB)(nil)
	_ Backend = (*localstore.Store)(nil)
)

// Open connects to the database named by cfg.Database. For postgres the
// migrations in cfg.Server.MigrationsPath are applied first. The returned
// function releases the connection.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (Backend, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		ls, err := localstore.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		log.Info("sqlite database opened", "path", cfg.Database.Path)
		return ls, func() {
			if err := ls.Close(); err != nil {
				log.Warn("closing sqlite", "error", err)
			}
		}, nil

	case config.DriverPostgres, "":
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, cfg.Server.MigrationsPath); err != nil {
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")

		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		log.Info("database connected", "host", cfg.Database.Host, "name", cfg.Database.Name)
		return db, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
