package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a workout session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Finished reports whether the status is terminal.
func (s SessionStatus) Finished() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// SetStatus is the outcome of a single logged set.
type SetStatus string

const (
	SetCompleted SetStatus = "completed"
	SetFailed    SetStatus = "failed"
	SetSkipped   SetStatus = "skipped"
)

// Exercise is a movement inside a Day template.
type Exercise struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name" validate:"required"`
	PlannedSets  int       `json:"planned_sets" validate:"min=1"`
	PlannedReps  int       `json:"planned_reps" validate:"min=0"`
	RepRange     string    `json:"rep_range,omitempty" validate:"max=32"`
	TargetWeight *float64  `json:"target_weight,omitempty" validate:"omitempty,gte=0"`
	Notes        string    `json:"notes,omitempty"`
}

// RepTarget returns the rep range when one is set, otherwise the planned rep count.
func (e Exercise) RepTarget() string {
	if e.RepRange != "" {
		return e.RepRange
	}
	return strconv.Itoa(e.PlannedReps)
}

// Day is an ordered group of exercises performed together.
type Day struct {
	ID        uuid.UUID  `json:"id"`
	Number    int        `json:"day_number" validate:"min=1"`
	Name      string     `json:"name,omitempty"`
	Exercises []Exercise `json:"exercises" validate:"dive"`
}

// DisplayName returns the day's name, or "Day N" when it has none.
func (d Day) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("Day %d", d.Number)
}

// Plan is a reusable workout template.
type Plan struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Days        []Day     `json:"days" validate:"dive"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := p
	out.Days = make([]Day, len(p.Days))
	for i, d := range p.Days {
		d.Exercises = append([]Exercise(nil), d.Exercises...)
		out.Days[i] = d
	}
	return out
}

// Renumber rewrites day numbers so they are contiguous from 1.
func (p *Plan) Renumber() {
	for i := range p.Days {
		p.Days[i].Number = i + 1
	}
}

// DayIndex returns the index of the day with the given ID, or -1.
func (p Plan) DayIndex(dayID uuid.UUID) int {
	for i, d := range p.Days {
		if d.ID == dayID {
			return i
		}
	}
	return -1
}

// FindDay locates a day across plans.
func FindDay(plans []Plan, dayID uuid.UUID) (Plan, Day, bool) {
	for _, p := range plans {
		if i := p.DayIndex(dayID); i >= 0 {
			return p, p.Days[i], true
		}
	}
	return Plan{}, Day{}, false
}

// SetLog records one attempted set.
type SetLog struct {
	ID        uuid.UUID `json:"id"`
	SetNumber int       `json:"set_number" validate:"min=1"`
	Weight    float64   `json:"weight" validate:"gte=0"`
	Reps      int       `json:"reps" validate:"gte=0"`
	Status    SetStatus `json:"status" validate:"oneof=completed failed skipped"`
	Timestamp time.Time `json:"timestamp"`
}

// ExerciseLog is the actual performance of one exercise within a session.
// Name and targets are snapshotted at session start so later plan edits do
// not rewrite history.
type ExerciseLog struct {
	ID           uuid.UUID `json:"id"`
	ExerciseID   uuid.UUID `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name" validate:"required"`
	PlannedSets  int       `json:"planned_sets" validate:"min=0"`
	PlannedReps  int       `json:"planned_reps" validate:"min=0"`
	RepRange     string    `json:"rep_range,omitempty"`
	TargetWeight *float64  `json:"target_weight,omitempty"`
	Sets         []SetLog  `json:"sets" validate:"dive"`
	Completed    bool      `json:"completed"`
}

// Session is one timestamped attempt at a Day.
type Session struct {
	ID           uuid.UUID     `json:"id"`
	DayID        *uuid.UUID    `json:"day_id"`
	DayName      string        `json:"day_name"`
	PlanName     string        `json:"plan_name"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at"`
	Status       SessionStatus `json:"status" validate:"oneof=in_progress completed abandoned"`
	ExerciseLogs []ExerciseLog `json:"exercise_logs" validate:"dive"`
	Notes        string        `json:"notes"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	if s.DayID != nil {
		id := *s.DayID
		out.DayID = &id
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	out.ExerciseLogs = make([]ExerciseLog, len(s.ExerciseLogs))
	for i, l := range s.ExerciseLogs {
		l.Sets = append([]SetLog(nil), l.Sets...)
		out.ExerciseLogs[i] = l
	}
	return out
}

// LastActivity is the completion time when set, otherwise the start time.
func (s Session) LastActivity() time.Time {
	if s.CompletedAt != nil {
		return *s.CompletedAt
	}
	return s.StartedAt
}

// LogIndex returns the index of the exercise log with the given ID, or -1.
func (s Session) LogIndex(logID uuid.UUID) int {
	for i, l := range s.ExerciseLogs {
		if l.ID == logID {
			return i
		}
	}
	return -1
}
