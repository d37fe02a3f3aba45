package store

import (
	"context"

	"github.com/claude/wotracker/internal/models"
)

// SettingsUpdate changes settings. Nil fields are left as they are.
type SettingsUpdate struct {
	WeightUnit       *models.WeightUnit `json:"weight_unit"`
	RestTimerDefault *int               `json:"rest_timer_default"`
	ShowRestTimer    *bool              `json:"show_rest_timer"`
}

// UpdateSettings merges u into the current settings.
func (s *Store) UpdateSettings(ctx context.Context, u SettingsUpdate) (models.Settings, PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return models.Settings{}, PersistResult{}, err
	}
	defer unlock()

	next := st.Settings
	if u.WeightUnit != nil {
		next.WeightUnit = *u.WeightUnit
	}
	if u.RestTimerDefault != nil {
		next.RestTimerDefault = *u.RestTimerDefault
	}
	if u.ShowRestTimer != nil {
		next.ShowRestTimer = *u.ShowRestTimer
	}
	if err := models.Validate(next); err != nil {
		return models.Settings{}, PersistResult{}, err
	}

	s.apply(SettingsUpdated{Settings: next})
	return next, s.persistSettings(ctx, st.UserID, next), nil
}

// Settings returns the current settings.
func (s *Store) Settings() models.Settings {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.Settings
}
