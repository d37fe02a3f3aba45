// Package session implements the workout session lifecycle as pure
// transitions over models.Session values. Callers own persistence.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
)

var (
	// ErrEmptyDay is returned when starting a day that has no exercises.
	ErrEmptyDay = errors.New("day has no exercises")
	// ErrNotActive is returned when a transition needs an in-progress session.
	ErrNotActive = errors.New("session is not in progress")
	// ErrLogNotFound is returned when an exercise log ID is not in the session.
	ErrLogNotFound = errors.New("exercise log not found")
)

// Start builds a new in-progress session for day with one empty exercise log
// per planned exercise. Targets are copied so later plan edits leave the
// session untouched.
func Start(plan models.Plan, day models.Day, now time.Time) (models.Session, error) {
	if len(day.Exercises) == 0 {
		return models.Session{}, ErrEmptyDay
	}

	dayID := day.ID
	s := models.Session{
		ID:           uuid.New(),
		DayID:        &dayID,
		DayName:      day.DisplayName(),
		PlanName:     plan.Name,
		StartedAt:    now,
		Status:       models.StatusInProgress,
		ExerciseLogs: make([]models.ExerciseLog, 0, len(day.Exercises)),
	}
	for _, e := range day.Exercises {
		var target *float64
		if e.TargetWeight != nil {
			w := *e.TargetWeight
			target = &w
		}
		s.ExerciseLogs = append(s.ExerciseLogs, models.ExerciseLog{
			ID:           uuid.New(),
			ExerciseID:   e.ID,
			ExerciseName: e.Name,
			PlannedSets:  e.PlannedSets,
			PlannedReps:  e.PlannedReps,
			RepRange:     e.RepRange,
			TargetWeight: target,
			Sets:         []models.SetLog{},
		})
	}
	return s, nil
}

// SetInput is one set as entered by the user.
type SetInput struct {
	SetNumber int              `json:"set_number"`
	Weight    float64          `json:"weight"`
	Reps      int              `json:"reps"`
	Status    models.SetStatus `json:"status"`
}

// NewSetLog builds a validated SetLog. Skipped sets always carry zero weight
// and reps. An empty status means completed.
func NewSetLog(in SetInput, now time.Time) (models.SetLog, error) {
	if in.Status == "" {
		in.Status = models.SetCompleted
	}
	if in.Status == models.SetSkipped {
		in.Weight, in.Reps = 0, 0
	}
	set := models.SetLog{
		ID:        uuid.New(),
		SetNumber: in.SetNumber,
		Weight:    in.Weight,
		Reps:      in.Reps,
		Status:    in.Status,
		Timestamp: now,
	}
	if err := models.Validate(set); err != nil {
		return models.SetLog{}, err
	}
	return set, nil
}

// WithSet returns a copy of log with set recorded. A set already logged under
// the same number is replaced. Sets stay ordered by number.
func WithSet(log models.ExerciseLog, set models.SetLog) models.ExerciseLog {
	sets := make([]models.SetLog, 0, len(log.Sets)+1)
	for _, s := range log.Sets {
		if s.SetNumber != set.SetNumber {
			sets = append(sets, s)
		}
	}
	sets = append(sets, set)
	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].SetNumber < sets[j].SetNumber
	})
	log.Sets = sets
	log.Completed = log.PlannedSets > 0 && len(sets) >= log.PlannedSets
	return log
}

// LogSet records a set against one of the session's exercise logs.
func LogSet(s models.Session, logID uuid.UUID, in SetInput, now time.Time) (models.Session, error) {
	if s.Status != models.StatusInProgress {
		return s, ErrNotActive
	}
	i := s.LogIndex(logID)
	if i < 0 {
		return s, ErrLogNotFound
	}
	set, err := NewSetLog(in, now)
	if err != nil {
		return s, err
	}
	out := s.Clone()
	out.ExerciseLogs[i] = WithSet(out.ExerciseLogs[i], set)
	return out, nil
}

// SkipSet logs setNumber as skipped.
func SkipSet(s models.Session, logID uuid.UUID, setNumber int, now time.Time) (models.Session, error) {
	return LogSet(s, logID, SetInput{SetNumber: setNumber, Status: models.SetSkipped}, now)
}

// FailSet logs setNumber as failed with the weight and reps reached.
func FailSet(s models.Session, logID uuid.UUID, setNumber int, weight float64, reps int, now time.Time) (models.Session, error) {
	return LogSet(s, logID, SetInput{SetNumber: setNumber, Weight: weight, Reps: reps, Status: models.SetFailed}, now)
}

// Complete finishes the session as completed. Unlogged sets are allowed.
func Complete(s models.Session, now time.Time) (models.Session, error) {
	return finish(s, models.StatusCompleted, now)
}

// Abandon finishes the session as abandoned.
func Abandon(s models.Session, now time.Time) (models.Session, error) {
	return finish(s, models.StatusAbandoned, now)
}

func finish(s models.Session, status models.SessionStatus, now time.Time) (models.Session, error) {
	if s.Status != models.StatusInProgress {
		return s, ErrNotActive
	}
	out := s.Clone()
	out.Status = status
	out.CompletedAt = &now
	return out, nil
}

// SwapExercise renames one exercise log for this session only.
func SwapExercise(s models.Session, logID uuid.UUID, name string) (models.Session, error) {
	if s.Status != models.StatusInProgress {
		return s, ErrNotActive
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return s, fmt.Errorf("%w: exercise name is required", models.ErrInvalid)
	}
	i := s.LogIndex(logID)
	if i < 0 {
		return s, ErrLogNotFound
	}
	out := s.Clone()
	out.ExerciseLogs[i].ExerciseName = name
	return out, nil
}

// UpdateNotes replaces the session notes. Finished sessions accept this too.
func UpdateNotes(s models.Session, notes string) models.Session {
	out := s.Clone()
	out.Notes = notes
	return out
}

// IsActive reports whether s is an in-progress session.
func IsActive(s *models.Session) bool {
	return s != nil && s.Status == models.StatusInProgress
}

// ExerciseLogByIndex returns the log at position i.
func ExerciseLogByIndex(s models.Session, i int) (models.ExerciseLog, bool) {
	if i < 0 || i >= len(s.ExerciseLogs) {
		return models.ExerciseLog{}, false
	}
	return s.ExerciseLogs[i], true
}

// SetByNumber returns the set logged under number, if any.
func SetByNumber(log models.ExerciseLog, number int) (models.SetLog, bool) {
	for _, s := range log.Sets {
		if s.SetNumber == number {
			return s, true
		}
	}
	return models.SetLog{}, false
}

// NextSetNumber is the lowest set number not yet logged, starting at 1.
func NextSetNumber(log models.ExerciseLog) int {
	n := 1
	for _, s := range log.Sets {
		if s.SetNumber == n {
			n++
		}
	}
	return n
}
