// Package repository defines the persistence contracts the store depends on.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
)

// ErrNotFound is returned when a record does not exist for the user.
var ErrNotFound = errors.New("not found")

// Plans persists workout plans and the user's active plan reference.
type Plans interface {
	FetchPlans(ctx context.Context, userID int) ([]models.Plan, error)
	SavePlan(ctx context.Context, userID int, p models.Plan) (models.Plan, error)
	// DeletePlan reports whether a plan was removed.
	DeletePlan(ctx context.Context, userID int, id uuid.UUID) (bool, error)
	// SetActivePlan makes id the active plan. uuid.Nil clears it.
	SetActivePlan(ctx context.Context, userID int, id uuid.UUID) error
	// ActivePlanID returns uuid.Nil when no plan is active.
	ActivePlanID(ctx context.Context, userID int) (uuid.UUID, error)
}

// Sessions persists workout sessions.
type Sessions interface {
	FetchSessions(ctx context.Context, userID int) ([]models.Session, error)
	SaveSession(ctx context.Context, userID int, s models.Session) (models.Session, error)
	// ActiveSession returns nil when the user has no in-progress session.
	ActiveSession(ctx context.Context, userID int) (*models.Session, error)
}

// Settings persists per-user preferences.
type Settings interface {
	// FetchSettings returns models.DefaultSettings when none are stored.
	FetchSettings(ctx context.Context, userID int) (models.Settings, error)
	SaveSettings(ctx context.Context, userID int, s models.Settings) error
}

// Repository is the full persistence surface.
type Repository interface {
	Plans
	Sessions
	Settings
}

// Admin exposes bookkeeping that sits beside the workout data.
type Admin interface {
	InsertImportLog(ctx context.Context, log models.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]models.ImportLog, error)
	DataStats(ctx context.Context, userID int) (models.DataStats, error)
}

// DefaultImportLogLimit caps QueryImportLogs when limit is not positive.
const DefaultImportLogLimit = 50
