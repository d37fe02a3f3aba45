package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/repository"
)

const sessionColumns = `id, day_id, day_name, plan_name, started_at, completed_at, status, exercise_logs, notes`

// FetchSessions returns every session for the user, newest first.
func (db *DB) FetchSessions(ctx context.Context, userID int) ([]models.Session, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM workout_sessions
		 WHERE user_id = $1
		 ORDER BY started_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// SaveSession upserts a session. A second in-progress session for the same
// user violates idx_workout_sessions_one_in_progress.
func (db *DB) SaveSession(ctx context.Context, userID int, s models.Session) (models.Session, error) {
	logs, err := json.Marshal(s.ExerciseLogs)
	if err != nil {
		return models.Session{}, fmt.Errorf("encoding exercise logs: %w", err)
	}
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, day_id, day_name, plan_name, started_at, completed_at, status, exercise_logs, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO UPDATE SET
			day_id = EXCLUDED.day_id,
			completed_at = EXCLUDED.completed_at,
			status = EXCLUDED.status,
			exercise_logs = EXCLUDED.exercise_logs,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		 WHERE workout_sessions.user_id = EXCLUDED.user_id`,
		s.ID, userID, nullUUID(s.DayID), s.DayName, s.PlanName, s.StartedAt, s.CompletedAt,
		string(s.Status), logs, s.Notes)
	if err != nil {
		return models.Session{}, fmt.Errorf("saving session %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.Session{}, fmt.Errorf("saving session %s: %w", s.ID, repository.ErrNotFound)
	}
	return s, nil
}

// ActiveSession returns the user's in-progress session, or nil.
func (db *DB) ActiveSession(ctx context.Context, userID int) (*models.Session, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM workout_sessions
		 WHERE user_id = $1 AND status = 'in_progress'
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSession(row pgx.Row) (models.Session, error) {
	var (
		s      models.Session
		dayID  uuid.NullUUID
		status string
		logs   []byte
	)
	if err := row.Scan(&s.ID, &dayID, &s.DayName, &s.PlanName, &s.StartedAt, &s.CompletedAt,
		&status, &logs, &s.Notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("scanning session: %w", err)
	}
	if dayID.Valid {
		s.DayID = &dayID.UUID
	}
	s.Status = models.SessionStatus(status)
	if err := json.Unmarshal(logs, &s.ExerciseLogs); err != nil {
		return s, fmt.Errorf("decoding exercise logs of session %s: %w", s.ID, err)
	}
	return s, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
