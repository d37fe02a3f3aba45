package alpha

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
)

// namespace seeds the deterministic IDs of imported records, so importing
// the same export twice yields the same session IDs.
var namespace = uuid.MustParse("3d8f6c2e-6f0b-4b8e-9a63-0f5a2b1c7d41")

// SessionID returns the ID an exported session is imported under.
func SessionID(s Session) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(s.Name+"|"+s.Date.UTC().Format("2006-01-02T15:04")))
}

// splitName reads "Legs · Day 2 · Week 4 · Push-Pull-Legs" as day "Legs"
// of plan "Push-Pull-Legs".
func splitName(name string) (day, plan string) {
	parts := strings.Split(name, " · ")
	if len(parts) < 2 {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[len(parts)-1])
}

// ToSession converts an exported session into a completed session.
// Warmups are dropped and working sets renumbered from 1.
func ToSession(s Session) models.Session {
	id := SessionID(s)
	day, plan := splitName(s.Name)
	start := s.Date
	end := start.Add(ParseDuration(s.Duration))

	out := models.Session{
		ID:           id,
		DayName:      day,
		PlanName:     plan,
		StartedAt:    start,
		CompletedAt:  &end,
		Status:       models.StatusCompleted,
		ExerciseLogs: make([]models.ExerciseLog, 0, len(s.Exercises)),
	}
	for _, ex := range s.Exercises {
		working := ex.WorkingSets()
		logID := uuid.NewSHA1(id, []byte("exercise|"+ex.Name+"|"+strconv.Itoa(ex.Number)))
		log := models.ExerciseLog{
			ID:           logID,
			ExerciseName: ex.Name,
			PlannedSets:  len(working),
			PlannedReps:  ex.TargetReps,
			Sets:         make([]models.SetLog, 0, len(working)),
			Completed:    len(working) > 0,
		}
		for i, set := range working {
			log.Sets = append(log.Sets, models.SetLog{
				ID:        uuid.NewSHA1(logID, []byte("set|"+strconv.Itoa(i+1))),
				SetNumber: i + 1,
				Weight:    set.WeightKg,
				Reps:      set.Reps,
				Status:    models.SetCompleted,
				Timestamp: end,
			})
		}
		out.ExerciseLogs = append(out.ExerciseLogs, log)
	}
	return out
}
