// Package localstore is a single-file SQLite repository for running without
// PostgreSQL.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/claude/wotracker/internal/repository"
)

// Store is a Repository over an SQLite database file.
type Store struct {
	db *sql.DB
}

var (
	_ repository.Repository = (*Store)(nil)
	_ repository.Admin      = (*Store)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	login        TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	last_seen    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS workout_plans (
	id          TEXT PRIMARY KEY,
	user_id     INTEGER NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	days        TEXT NOT NULL DEFAULT '[]',
	is_active   INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_workout_plans_one_active ON workout_plans (user_id) WHERE is_active = 1;
CREATE TABLE IF NOT EXISTS workout_sessions (
	id            TEXT PRIMARY KEY,
	user_id       INTEGER NOT NULL,
	day_id        TEXT,
	day_name      TEXT NOT NULL DEFAULT '',
	plan_name     TEXT NOT NULL DEFAULT '',
	started_at    TEXT NOT NULL,
	completed_at  TEXT,
	status        TEXT NOT NULL,
	exercise_logs TEXT NOT NULL DEFAULT '[]',
	notes         TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_workout_sessions_one_in_progress ON workout_sessions (user_id) WHERE status = 'in_progress';
CREATE TABLE IF NOT EXISTS user_settings (
	user_id            INTEGER PRIMARY KEY,
	weight_unit        TEXT NOT NULL,
	rest_timer_default INTEGER NOT NULL,
	show_rest_timer    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS import_logs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id           INTEGER NOT NULL,
	created_at        TEXT NOT NULL,
	source            TEXT NOT NULL,
	status            TEXT NOT NULL,
	sessions_received INTEGER NOT NULL DEFAULT 0,
	sessions_inserted INTEGER NOT NULL DEFAULT 0,
	sets_received     INTEGER NOT NULL DEFAULT 0,
	duration_ms       INTEGER,
	error_message     TEXT
);`

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateUser finds or creates a user by login and returns its ID.
func (s *Store) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	now := formatTime(time.Now())
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (login, display_name, created_at, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = excluded.last_seen,
				display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name)
		RETURNING id
	`, login, displayName, now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", login, err)
	}
	return id, nil
}

// timeLayout is fixed width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", v, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
