package main

import (
	"testing"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/models"
)

func testState() api.State {
	planID := uuid.New()
	return api.State{
		ActivePlanID: &planID,
		Plans: []models.Plan{
			{ID: uuid.New(), Name: "Other", Days: []models.Day{{ID: uuid.New(), Name: "Push"}}},
			{ID: planID, Name: "PPL", Days: []models.Day{
				{ID: uuid.New(), Name: "Push"},
				{ID: uuid.New(), Name: "Pull"},
				{ID: uuid.New(), Name: "Legs"},
			}},
		},
	}
}

// TestFindDay verifies days resolve from the active plan by ID, position
// and name.
func TestFindDay(t *testing.T) {
	st := testState()
	days := st.Plans[1].Days

	tests := []struct {
		arg     string
		want    uuid.UUID
		wantErr bool
	}{
		{arg: days[1].ID.String(), want: days[1].ID},
		{arg: "3", want: days[2].ID},
		{arg: "push", want: days[0].ID},
		{arg: "4", wantErr: true},
		{arg: st.Plans[0].Days[0].ID.String(), wantErr: true},
		{arg: "arms", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := findDay(st, tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got.Name)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("got %s, want %s", got.ID, tt.want)
			}
		})
	}

	if _, err := findDay(api.State{}, "1"); err == nil {
		t.Error("expected error without an active plan")
	}
}

// TestFindLog verifies exercise lookup by position, exact name and prefix.
func TestFindLog(t *testing.T) {
	s := models.Session{ExerciseLogs: []models.ExerciseLog{
		{ExerciseName: "Bench Press"},
		{ExerciseName: "Bench Dips"},
		{ExerciseName: "Squat"},
	}}

	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{arg: "2", want: "Bench Dips"},
		{arg: "squat", want: "Squat"},
		{arg: "sq", want: "Squat"},
		{arg: "bench press", want: "Bench Press"},
		{arg: "bench", wantErr: true},
		{arg: "row", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := findLog(s, tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got.ExerciseName)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ExerciseName != tt.want {
				t.Errorf("got %s, want %s", got.ExerciseName, tt.want)
			}
		})
	}
}

// TestNextSetNumber verifies the next set follows the highest logged one.
func TestNextSetNumber(t *testing.T) {
	if n := nextSetNumber(models.ExerciseLog{}); n != 1 {
		t.Errorf("empty log = %d, want 1", n)
	}
	l := models.ExerciseLog{Sets: []models.SetLog{{SetNumber: 1}, {SetNumber: 3}}}
	if n := nextSetNumber(l); n != 4 {
		t.Errorf("next = %d, want 4", n)
	}
}
