package models

import "time"

// ImportLog records the outcome of one history import.
type ImportLog struct {
	ID               int64     `json:"id"`
	UserID           int       `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	SessionsReceived int       `json:"sessions_received"`
	SessionsInserted int       `json:"sessions_inserted"`
	SetsReceived     int       `json:"sets_received"`
	DurationMs       *int      `json:"duration_ms"`
	ErrorMessage     *string   `json:"error_message"`
}

// Import log statuses.
const (
	ImportSuccess = "success"
	ImportError   = "error"
)

// DataStats holds aggregate counts over a user's stored data.
type DataStats struct {
	TotalPlans    int64      `json:"total_plans"`
	TotalSessions int64      `json:"total_sessions"`
	Completed     int64      `json:"completed_sessions"`
	Abandoned     int64      `json:"abandoned_sessions"`
	EarliestData  *time.Time `json:"earliest_data"`
	LatestData    *time.Time `json:"latest_data"`
}
