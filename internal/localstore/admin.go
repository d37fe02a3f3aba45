package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/repository"
)

func (s *Store) InsertImportLog(ctx context.Context, log models.ImportLog) (int64, error) {
	created := log.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO import_logs (user_id, created_at, source, status, sessions_received, sessions_inserted,
		 sets_received, duration_ms, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.UserID, formatTime(created), log.Source, log.Status, log.SessionsReceived,
		log.SessionsInserted, log.SetsReceived, log.DurationMs, log.ErrorMessage)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) QueryImportLogs(ctx context.Context, userID, limit int) ([]models.ImportLog, error) {
	if limit <= 0 {
		limit = repository.DefaultImportLogLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, created_at, source, status, sessions_received, sessions_inserted,
		 sets_received, duration_ms, error_message
		 FROM import_logs WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []models.ImportLog
	for rows.Next() {
		var (
			l        models.ImportLog
			created  string
			duration sql.NullInt64
			errMsg   sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.UserID, &created, &l.Source, &l.Status,
			&l.SessionsReceived, &l.SessionsInserted, &l.SetsReceived, &duration, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		if l.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if duration.Valid {
			d := int(duration.Int64)
			l.DurationMs = &d
		}
		if errMsg.Valid {
			l.ErrorMessage = &errMsg.String
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (s *Store) DataStats(ctx context.Context, userID int) (models.DataStats, error) {
	var stats models.DataStats
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workout_plans WHERE user_id = ?`, userID).Scan(&stats.TotalPlans); err != nil {
		return stats, fmt.Errorf("counting plans: %w", err)
	}

	var earliest, latest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(status = 'completed'), 0),
			COALESCE(SUM(status = 'abandoned'), 0),
			MIN(started_at),
			MAX(COALESCE(completed_at, started_at))
		 FROM workout_sessions WHERE user_id = ?`, userID,
	).Scan(&stats.TotalSessions, &stats.Completed, &stats.Abandoned, &earliest, &latest)
	if err != nil {
		return stats, fmt.Errorf("counting sessions: %w", err)
	}
	if stats.EarliestData, err = parseNullTime(earliest); err != nil {
		return stats, err
	}
	if stats.LatestData, err = parseNullTime(latest); err != nil {
		return stats, err
	}
	return stats, nil
}
