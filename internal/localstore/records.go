package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/repository"
)

func (s *Store) FetchPlans(ctx context.Context, userID int) ([]models.Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, days, is_active, created_at, updated_at
		 FROM workout_plans WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var result []models.Plan
	for rows.Next() {
		var (
			p                models.Plan
			days             string
			created, updated string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &days, &p.IsActive, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		if err := json.Unmarshal([]byte(days), &p.Days); err != nil {
			return nil, fmt.Errorf("decoding days of plan %s: %w", p.ID, err)
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if p.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) SavePlan(ctx context.Context, userID int, p models.Plan) (models.Plan, error) {
	days, err := json.Marshal(p.Days)
	if err != nil {
		return models.Plan{}, fmt.Errorf("encoding days: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workout_plans (id, user_id, name, description, days, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			days = excluded.days,
			updated_at = excluded.updated_at
		 WHERE workout_plans.user_id = excluded.user_id`,
		p.ID.String(), userID, p.Name, p.Description, string(days), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return models.Plan{}, fmt.Errorf("saving plan %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Plan{}, fmt.Errorf("saving plan %s: %w", p.ID, repository.ErrNotFound)
	}
	return p, nil
}

func (s *Store) DeletePlan(ctx context.Context, userID int, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workout_plans WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return false, fmt.Errorf("deleting plan %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) SetActivePlan(ctx context.Context, userID int, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE workout_plans SET is_active = 0 WHERE user_id = ? AND is_active = 1`, userID); err != nil {
		return fmt.Errorf("clearing active plan: %w", err)
	}
	if id != uuid.Nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE workout_plans SET is_active = 1 WHERE id = ? AND user_id = ?`, id.String(), userID)
		if err != nil {
			return fmt.Errorf("activating plan %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
	}
	return tx.Commit()
}

func (s *Store) ActivePlanID(ctx context.Context, userID int) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM workout_plans WHERE user_id = ? AND is_active = 1`, userID).Scan(&id)
	if noRows(err) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("querying active plan: %w", err)
	}
	return id, nil
}

const sessionColumns = `id, day_id, day_name, plan_name, started_at, completed_at, status, exercise_logs, notes`

func (s *Store) FetchSessions(ctx context.Context, userID int) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions WHERE user_id = ? ORDER BY started_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func (s *Store) SaveSession(ctx context.Context, userID int, sess models.Session) (models.Session, error) {
	logs, err := json.Marshal(sess.ExerciseLogs)
	if err != nil {
		return models.Session{}, fmt.Errorf("encoding exercise logs: %w", err)
	}
	var dayID sql.NullString
	if sess.DayID != nil {
		dayID = sql.NullString{String: sess.DayID.String(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workout_sessions (id, user_id, day_id, day_name, plan_name, started_at, completed_at, status, exercise_logs, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			day_id = excluded.day_id,
			completed_at = excluded.completed_at,
			status = excluded.status,
			exercise_logs = excluded.exercise_logs,
			notes = excluded.notes
		 WHERE workout_sessions.user_id = excluded.user_id`,
		sess.ID.String(), userID, dayID, sess.DayName, sess.PlanName, formatTime(sess.StartedAt),
		nullTime(sess.CompletedAt), string(sess.Status), string(logs), sess.Notes)
	if err != nil {
		return models.Session{}, fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Session{}, fmt.Errorf("saving session %s: %w", sess.ID, repository.ErrNotFound)
	}
	return sess, nil
}

func (s *Store) ActiveSession(ctx context.Context, userID int) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions
		 WHERE user_id = ? AND status = 'in_progress'
		 ORDER BY started_at DESC LIMIT 1`, userID)
	sess, err := scanSession(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (models.Session, error) {
	var (
		sess      models.Session
		dayID     uuid.NullUUID
		started   string
		completed sql.NullString
		status    string
		logs      string
	)
	if err := row.Scan(&sess.ID, &dayID, &sess.DayName, &sess.PlanName, &started, &completed,
		&status, &logs, &sess.Notes); err != nil {
		if noRows(err) {
			return sess, err
		}
		return sess, fmt.Errorf("scanning session: %w", err)
	}
	if dayID.Valid {
		sess.DayID = &dayID.UUID
	}
	var err error
	if sess.StartedAt, err = parseTime(started); err != nil {
		return sess, err
	}
	if sess.CompletedAt, err = parseNullTime(completed); err != nil {
		return sess, err
	}
	sess.Status = models.SessionStatus(status)
	if err := json.Unmarshal([]byte(logs), &sess.ExerciseLogs); err != nil {
		return sess, fmt.Errorf("decoding exercise logs of session %s: %w", sess.ID, err)
	}
	return sess, nil
}

func (s *Store) FetchSettings(ctx context.Context, userID int) (models.Settings, error) {
	var (
		settings models.Settings
		unit     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT weight_unit, rest_timer_default, show_rest_timer FROM user_settings WHERE user_id = ?`,
		userID).Scan(&unit, &settings.RestTimerDefault, &settings.ShowRestTimer)
	if noRows(err) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("querying settings: %w", err)
	}
	settings.WeightUnit = models.WeightUnit(unit)
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, userID int, settings models.Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO user_settings (user_id, weight_unit, rest_timer_default, show_rest_timer)
		 VALUES (?, ?, ?, ?)`,
		userID, string(settings.WeightUnit), settings.RestTimerDefault, settings.ShowRestTimer)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
