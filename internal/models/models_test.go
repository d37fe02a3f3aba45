package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestValidatePlan verifies struct tags are enforced through nested days
// and exercises, and errors name the JSON field.
func TestValidatePlan(t *testing.T) {
	ok := Plan{Name: "PPL", Days: []Day{{Number: 1, Exercises: []Exercise{{Name: "Squat", PlannedSets: 3, PlannedReps: 5}}}}}
	if err := Validate(ok); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	bad := ok.Clone()
	bad.Days[0].Exercises[0].PlannedSets = 0
	err := Validate(bad)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), "planned_sets") {
		t.Errorf("error %q does not name planned_sets", err)
	}

	if err := Validate(Plan{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("unnamed plan: err = %v, want ErrInvalid", err)
	}
}

// TestValidateSettings verifies unit and rest timer bounds.
func TestValidateSettings(t *testing.T) {
	if err := Validate(DefaultSettings()); err != nil {
		t.Fatalf("default settings rejected: %v", err)
	}
	tests := []Settings{
		{WeightUnit: "stone", RestTimerDefault: 90},
		{WeightUnit: UnitKg, RestTimerDefault: -1},
		{WeightUnit: UnitLb, RestTimerDefault: 3601},
	}
	for _, s := range tests {
		if err := Validate(s); !errors.Is(err, ErrInvalid) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalid", s, err)
		}
	}
}

// TestCloneIsDeep verifies clones do not share slices or pointers.
func TestCloneIsDeep(t *testing.T) {
	p := Plan{Days: []Day{{Exercises: []Exercise{{Name: "Row"}}}}}
	c := p.Clone()
	c.Days[0].Exercises[0].Name = "Pull-up"
	if p.Days[0].Exercises[0].Name != "Row" {
		t.Error("plan clone shares exercises")
	}

	now := time.Now()
	day := uuid.New()
	s := Session{DayID: &day, CompletedAt: &now, ExerciseLogs: []ExerciseLog{{Sets: []SetLog{{Reps: 5}}}}}
	sc := s.Clone()
	sc.ExerciseLogs[0].Sets[0].Reps = 8
	*sc.DayID = uuid.New()
	*sc.CompletedAt = now.Add(time.Hour)
	if s.ExerciseLogs[0].Sets[0].Reps != 5 || *s.DayID != day || !s.CompletedAt.Equal(now) {
		t.Error("session clone shares state")
	}
}

// TestFindDay verifies lookup across plans and Renumber.
func TestFindDay(t *testing.T) {
	target := uuid.New()
	plans := []Plan{
		{Name: "A", Days: []Day{{ID: uuid.New()}}},
		{Name: "B", Days: []Day{{ID: uuid.New()}, {ID: target, Name: "Legs"}}},
	}
	p, d, ok := FindDay(plans, target)
	if !ok || p.Name != "B" || d.Name != "Legs" {
		t.Errorf("FindDay = %s/%s/%v", p.Name, d.Name, ok)
	}
	if _, _, ok := FindDay(plans, uuid.New()); ok {
		t.Error("found an unknown day")
	}

	plans[1].Renumber()
	if plans[1].Days[0].Number != 1 || plans[1].Days[1].Number != 2 {
		t.Errorf("numbers = %d,%d", plans[1].Days[0].Number, plans[1].Days[1].Number)
	}
	if got := plans[1].Days[0].DisplayName(); got != "Day 1" {
		t.Errorf("DisplayName = %q, want Day 1", got)
	}
}

// TestRepTarget verifies the rep range wins over planned reps.
func TestRepTarget(t *testing.T) {
	if got := (Exercise{PlannedReps: 5}).RepTarget(); got != "5" {
		t.Errorf("got %q", got)
	}
	if got := (Exercise{PlannedReps: 5, RepRange: "8-12"}).RepTarget(); got != "8-12" {
		t.Errorf("got %q", got)
	}
}

// TestSessionHelpers verifies status, activity time and log lookup.
func TestSessionHelpers(t *testing.T) {
	if StatusInProgress.Finished() || !StatusAbandoned.Finished() {
		t.Error("Finished misclassifies statuses")
	}
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	s := Session{StartedAt: start, ExerciseLogs: []ExerciseLog{{ID: uuid.New()}, {ID: uuid.New()}}}
	if !s.LastActivity().Equal(start) {
		t.Errorf("LastActivity = %v", s.LastActivity())
	}
	end := start.Add(time.Hour)
	s.CompletedAt = &end
	if !s.LastActivity().Equal(end) {
		t.Errorf("LastActivity = %v", s.LastActivity())
	}
	if i := s.LogIndex(s.ExerciseLogs[1].ID); i != 1 {
		t.Errorf("LogIndex = %d", i)
	}
	if i := s.LogIndex(uuid.New()); i != -1 {
		t.Errorf("LogIndex(unknown) = %d", i)
	}
}
