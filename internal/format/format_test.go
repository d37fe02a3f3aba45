package format

import (
	"testing"
	"time"

	"github.com/claude/wotracker/internal/models"
)

// TestTimer verifies the m:ss countdown rendering.
func TestTimer(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{125, "2:05"},
		{0, "0:00"},
		{59, "0:59"},
		{600, "10:00"},
		{-3, "0:00"},
	}
	for _, tt := range tests {
		if got := Timer(tt.seconds); got != tt.want {
			t.Errorf("Timer(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

// TestWeight verifies zero renders as the placeholder and units are appended.
func TestWeight(t *testing.T) {
	if got := Weight(0, models.UnitKg); got != "—" {
		t.Errorf("Weight(0) = %q, want —", got)
	}
	if got := Weight(102.5, models.UnitKg); got != "102.5kg" {
		t.Errorf("Weight(102.5) = %q, want 102.5kg", got)
	}
	if got := Weight(135, models.UnitLb); got != "135lb" {
		t.Errorf("Weight(135, lb) = %q, want 135lb", got)
	}
	if got := Weight(60, ""); got != "60kg" {
		t.Errorf("Weight(60, \"\") = %q, want 60kg", got)
	}
}

// TestPluralize verifies singular for one and the default "s" suffix otherwise.
func TestPluralize(t *testing.T) {
	if got := Pluralize(1, "exercise", ""); got != "exercise" {
		t.Errorf("Pluralize(1) = %q", got)
	}
	if got := Pluralize(2, "exercise", ""); got != "exercises" {
		t.Errorf("Pluralize(2) = %q", got)
	}
	if got := Pluralize(0, "exercise", ""); got != "exercises" {
		t.Errorf("Pluralize(0) = %q", got)
	}
	if got := Pluralize(3, "day", "days off"); got != "days off" {
		t.Errorf("Pluralize with explicit plural = %q", got)
	}
}

// TestOrdinal covers the teen exceptions.
func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 101: "101st", 111: "111th",
	}
	for n, want := range tests {
		if got := Ordinal(n); got != want {
			t.Errorf("Ordinal(%d) = %q, want %q", n, got, want)
		}
	}
}

// TestDuration verifies unit truncation at each magnitude.
func TestDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5*time.Minute + 30*time.Second, "5m 30s"},
		{time.Hour + 5*time.Minute + 59*time.Second, "1h 5m"},
		{900 * time.Millisecond, "0s"},
	}
	for _, tt := range tests {
		if got := Duration(tt.d); got != tt.want {
			t.Errorf("Duration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// TestDateRelative verifies the relative labels and the absolute fallback.
func TestDateRelative(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"today", now.Add(-2 * time.Hour), "Today"},
		{"yesterday", now.Add(-30 * time.Hour), "Yesterday"},
		{"days ago", now.AddDate(0, 0, -4), "4 days ago"},
		{"older", now.AddDate(0, 0, -20), "Feb 18"},
		{"over a year", now.AddDate(-2, 0, 0), "Mar 10, 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Date(tt.t, now, true); got != tt.want {
				t.Errorf("Date = %q, want %q", got, tt.want)
			}
		})
	}

	if got := Date(now.Add(-2*time.Hour), now, false); got != "Mar 10" {
		t.Errorf("absolute Date = %q, want Mar 10", got)
	}
}

// TestExerciseTarget verifies rep ranges win over rep counts and the target
// weight is appended only when positive.
func TestExerciseTarget(t *testing.T) {
	w := 60.0
	e := models.Exercise{PlannedSets: 3, PlannedReps: 10}
	if got := ExerciseTarget(e, models.UnitKg); got != "3 × 10" {
		t.Errorf("ExerciseTarget = %q", got)
	}
	e.RepRange = "8-12"
	e.TargetWeight = &w
	if got := ExerciseTarget(e, models.UnitKg); got != "3 × 8-12 @ 60kg" {
		t.Errorf("ExerciseTarget = %q", got)
	}
}

// TestSessionDuration verifies in-progress sessions are measured to now.
func TestSessionDuration(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	now := start.Add(42 * time.Minute)

	if got := SessionDuration(models.Session{}, now); got != "—" {
		t.Errorf("zero session = %q", got)
	}
	s := models.Session{StartedAt: start}
	if got := SessionDuration(s, now); got != "42m 0s" {
		t.Errorf("in progress = %q", got)
	}
	done := start.Add(75 * time.Minute)
	s.CompletedAt = &done
	if got := SessionDuration(s, now); got != "1h 15m" {
		t.Errorf("completed = %q", got)
	}
}
