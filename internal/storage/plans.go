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

// FetchPlans returns the user's plans, newest first.
func (db *DB) FetchPlans(ctx context.Context, userID int) ([]models.Plan, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, description, days, is_active, created_at, updated_at
		 FROM workout_plans
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var result []models.Plan
	for rows.Next() {
		var (
			p    models.Plan
			days []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &days, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		if err := json.Unmarshal(days, &p.Days); err != nil {
			return nil, fmt.Errorf("decoding days of plan %s: %w", p.ID, err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// SavePlan upserts a plan. The active flag is owned by SetActivePlan and is
// not written here.
func (db *DB) SavePlan(ctx context.Context, userID int, p models.Plan) (models.Plan, error) {
	days, err := json.Marshal(p.Days)
	if err != nil {
		return models.Plan{}, fmt.Errorf("encoding days: %w", err)
	}
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_plans (id, user_id, name, description, days, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			days = EXCLUDED.days,
			updated_at = EXCLUDED.updated_at
		 WHERE workout_plans.user_id = EXCLUDED.user_id`,
		p.ID, userID, p.Name, p.Description, days, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return models.Plan{}, fmt.Errorf("saving plan %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.Plan{}, fmt.Errorf("saving plan %s: %w", p.ID, repository.ErrNotFound)
	}
	return p, nil
}

// DeletePlan removes a plan. Sessions keep their denormalized names.
func (db *DB) DeletePlan(ctx context.Context, userID int, id uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting plan %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetActivePlan marks one plan active and clears the rest in a single
// transaction. uuid.Nil only clears.
func (db *DB) SetActivePlan(ctx context.Context, userID int, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE workout_plans SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID); err != nil {
			return fmt.Errorf("clearing active plan: %w", err)
		}
		if id == uuid.Nil {
			return nil
		}
		tag, err := tx.Exec(ctx,
			`UPDATE workout_plans SET is_active = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("activating plan %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// ActivePlanID returns uuid.Nil when no plan is active.
func (db *DB) ActivePlanID(ctx context.Context, userID int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT id FROM workout_plans WHERE user_id = $1 AND is_active`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("querying active plan: %w", err)
	}
	return id, nil
}
