package storage

import (
	"context"
	"fmt"

	"github.com/claude/wotracker/internal/models"
)

// DataStats returns aggregate statistics for a user's stored data.
func (db *DB) DataStats(ctx context.Context, userID int) (models.DataStats, error) {
	var stats models.DataStats

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM workout_plans WHERE user_id = $1`, userID,
	).Scan(&stats.TotalPlans)
	if err != nil {
		return stats, fmt.Errorf("counting plans: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'abandoned'),
			MIN(started_at),
			MAX(COALESCE(completed_at, started_at))
		 FROM workout_sessions WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSessions, &stats.Completed, &stats.Abandoned, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return stats, fmt.Errorf("counting sessions: %w", err)
	}
	return stats, nil
}
