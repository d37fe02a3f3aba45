package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
)

// TestMemoryPlans verifies save, active flag on fetch and delete clearing the
// active reference.
func TestMemoryPlans(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p := models.Plan{ID: uuid.New(), Name: "PPL", CreatedAt: time.Now()}
	if _, err := m.SavePlan(ctx, 1, p); err != nil {
		t.Fatal(err)
	}
	if err := m.SetActivePlan(ctx, 1, p.ID); err != nil {
		t.Fatal(err)
	}
	plans, _ := m.FetchPlans(ctx, 1)
	if len(plans) != 1 || !plans[0].IsActive {
		t.Fatalf("plans = %+v", plans)
	}
	if other, _ := m.FetchPlans(ctx, 2); len(other) != 0 {
		t.Errorf("user 2 sees %d plans", len(other))
	}

	if err := m.SetActivePlan(ctx, 1, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("activate unknown: %v", err)
	}

	ok, err := m.DeletePlan(ctx, 1, p.ID)
	if err != nil || !ok {
		t.Fatalf("DeletePlan = %v, %v", ok, err)
	}
	if id, _ := m.ActivePlanID(ctx, 1); id != uuid.Nil {
		t.Errorf("active plan after delete = %v", id)
	}
	if ok, _ := m.DeletePlan(ctx, 1, p.ID); ok {
		t.Error("second delete reported true")
	}
}

// TestMemorySessions verifies the active session lookup.
func TestMemorySessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if s, _ := m.ActiveSession(ctx, 1); s != nil {
		t.Errorf("active on empty = %+v", s)
	}
	done := models.Session{ID: uuid.New(), Status: models.StatusCompleted, StartedAt: time.Now().Add(-time.Hour)}
	live := models.Session{ID: uuid.New(), Status: models.StatusInProgress, StartedAt: time.Now()}
	m.SaveSession(ctx, 1, done)
	m.SaveSession(ctx, 1, live)

	s, err := m.ActiveSession(ctx, 1)
	if err != nil || s == nil || s.ID != live.ID {
		t.Fatalf("ActiveSession = %+v, %v", s, err)
	}
	all, _ := m.FetchSessions(ctx, 1)
	if len(all) != 2 || all[0].ID != live.ID {
		t.Errorf("FetchSessions order = %+v", all)
	}
}

// TestMemorySettingsDefault verifies defaults are returned before any save.
func TestMemorySettingsDefault(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s, err := m.FetchSettings(ctx, 1)
	if err != nil || s != models.DefaultSettings() {
		t.Fatalf("FetchSettings = %+v, %v", s, err)
	}
	s.WeightUnit = models.UnitLb
	m.SaveSettings(ctx, 1, s)
	got, _ := m.FetchSettings(ctx, 1)
	if got.WeightUnit != models.UnitLb {
		t.Errorf("unit = %s", got.WeightUnit)
	}
}

// TestMemoryFailWrites verifies injected errors block writes.
func TestMemoryFailWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")
	m.FailWrites(boom)

	if _, err := m.SavePlan(ctx, 1, models.Plan{ID: uuid.New()}); !errors.Is(err, boom) {
		t.Errorf("SavePlan: %v", err)
	}
	if err := m.SaveSettings(ctx, 1, models.DefaultSettings()); !errors.Is(err, boom) {
		t.Errorf("SaveSettings: %v", err)
	}
	if m.Writes() != 0 {
		t.Errorf("Writes = %d", m.Writes())
	}
	m.FailWrites(nil)
	if _, err := m.SavePlan(ctx, 1, models.Plan{ID: uuid.New()}); err != nil {
		t.Errorf("after reset: %v", err)
	}
}
