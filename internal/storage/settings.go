package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/claude/wotracker/internal/models"
)

// FetchSettings returns the stored settings or the defaults.
func (db *DB) FetchSettings(ctx context.Context, userID int) (models.Settings, error) {
	var (
		s    models.Settings
		unit string
	)
	err := db.Pool.QueryRow(ctx,
		`SELECT weight_unit, rest_timer_default, show_rest_timer FROM user_settings WHERE user_id = $1`,
		userID).Scan(&unit, &s.RestTimerDefault, &s.ShowRestTimer)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("querying settings: %w", err)
	}
	s.WeightUnit = models.WeightUnit(unit)
	return s, nil
}

// SaveSettings upserts the user's settings.
func (db *DB) SaveSettings(ctx context.Context, userID int, s models.Settings) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, weight_unit, rest_timer_default, show_rest_timer)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (user_id) DO UPDATE SET
			weight_unit = EXCLUDED.weight_unit,
			rest_timer_default = EXCLUDED.rest_timer_default,
			show_rest_timer = EXCLUDED.show_rest_timer,
			updated_at = NOW()`,
		userID, string(s.WeightUnit), s.RestTimerDefault, s.ShowRestTimer)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
