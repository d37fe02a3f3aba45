// Package api holds the request and response bodies shared by the HTTP
// server and its client.
package api

import (
	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/nutrition"
	"github.com/claude/wotracker/internal/store"
)

// Headers.
const (
	HeaderAPIKey = "X-API-Key"
	// HeaderUnsynced is set on mutation responses whose write did not reach
	// the database. The change is kept in memory and retried by sync.
	HeaderUnsynced = "X-Wotracker-Unsynced"
)

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}

// Me identifies the caller.
type Me struct {
	UserID      int    `json:"user_id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// State is the full snapshot of a user's data.
type State struct {
	Plans         []models.Plan    `json:"plans"`
	ActivePlanID  *uuid.UUID       `json:"active_plan_id"`
	ActiveSession *models.Session  `json:"active_session"`
	Sessions      []models.Session `json:"sessions"`
	Settings      models.Settings  `json:"settings"`
	Unsynced      store.Unsynced   `json:"unsynced"`
}

// ReorderRequest lists the exercise IDs of a day in their new order.
type ReorderRequest struct {
	Order []uuid.UUID `json:"order"`
}

// StartRequest starts a session for a plan day.
type StartRequest struct {
	DayID          uuid.UUID `json:"day_id"`
	AbandonCurrent bool      `json:"abandon_current"`
}

// LogSetRequest records one set of the active session. Status defaults to
// completed.
type LogSetRequest struct {
	ExerciseLogID uuid.UUID        `json:"exercise_log_id"`
	SetNumber     int              `json:"set_number"`
	Weight        float64          `json:"weight"`
	Reps          int              `json:"reps"`
	Status        models.SetStatus `json:"status,omitempty"`
}

// SwapRequest replaces the exercise of a log.
type SwapRequest struct {
	ExerciseLogID uuid.UUID `json:"exercise_log_id"`
	Name          string    `json:"name"`
}

// NotesRequest sets a session's notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// SyncResponse reports what is still pending after a sync.
type SyncResponse struct {
	Unsynced store.Unsynced `json:"unsynced"`
	Error    string         `json:"error,omitempty"`
}

// ChatRequest continues a nutrition conversation.
type ChatRequest struct {
	History []nutrition.Message `json:"history" validate:"dive"`
	Message string              `json:"message" validate:"required"`
}

// AnalyzeRequest describes one meal.
type AnalyzeRequest struct {
	Description string `json:"description" validate:"required"`
}
