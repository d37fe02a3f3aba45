package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/wotracker/internal/client"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/repository"
	"github.com/claude/wotracker/internal/store"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestUserIDFromContextDefault verifies no user is reported when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 0 {
		t.Errorf("UserIDFromContext(empty) = %d, want 0", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// fixture is a store-backed handler set with one active plan.
type fixture struct {
	h    *handlers
	ctx  context.Context
	plan models.Plan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := store.NewRegistry(repository.NewMemory(), discard())
	ctx := WithUserID(context.Background(), 7)

	us, err := reg.For(ctx, 7)
	if err != nil {
		t.Fatalf("loading store: %v", err)
	}
	plan, _, err := us.CreatePlan(ctx, models.Plan{
		Name: "Full Body",
		Days: []models.Day{{Name: "A", Exercises: []models.Exercise{
			{Name: "Squat", PlannedSets: 2, PlannedReps: 5},
		}}},
	})
	if err != nil {
		t.Fatalf("creating plan: %v", err)
	}
	if _, err := us.SetActivePlan(ctx, plan.ID); err != nil {
		t.Fatalf("activating plan: %v", err)
	}
	return &fixture{h: &handlers{ds: NewStoreSource(reg), log: discard()}, ctx: ctx, plan: plan}
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// resultText returns the first text content of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func decodeWritten(t *testing.T, res *mcp.CallToolResult) Written {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var w Written
	if err := json.Unmarshal([]byte(resultText(t, res)), &w); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return w
}

// TestSessionTools drives a full session through the tool handlers.
func TestSessionTools(t *testing.T) {
	f := newFixture(t)
	day := f.plan.Days[0]

	res, _ := f.h.startSession(f.ctx, callTool("start_session", map[string]any{"day_id": day.ID.String()}))
	w := decodeWritten(t, res)
	if w.Value.Status != models.StatusInProgress || w.Unsynced {
		t.Fatalf("started session = %+v", w)
	}
	logID := w.Value.ExerciseLogs[0].ID

	res, _ = f.h.logSet(f.ctx, callTool("log_set", map[string]any{
		"exercise_log_id": logID.String(), "set_number": 1.0, "weight": 100.0, "reps": 5.0,
	}))
	w = decodeWritten(t, res)
	if sets := w.Value.ExerciseLogs[0].Sets; len(sets) != 1 || sets[0].Weight != 100 || sets[0].Reps != 5 {
		t.Fatalf("sets after log = %+v", sets)
	}

	res, _ = f.h.logSet(f.ctx, callTool("log_set", map[string]any{
		"exercise_log_id": logID.String(), "set_number": 2.0, "status": "skipped",
	}))
	w = decodeWritten(t, res)
	if sets := w.Value.ExerciseLogs[0].Sets; len(sets) != 2 || sets[1].Status != models.SetSkipped {
		t.Fatalf("sets after skip = %+v", sets)
	}

	res, _ = f.h.setNotes(f.ctx, callTool("set_session_notes", map[string]any{"notes": "felt strong"}))
	if w = decodeWritten(t, res); w.Value.Notes != "felt strong" {
		t.Errorf("notes = %q", w.Value.Notes)
	}

	res, _ = f.h.completeSession(f.ctx, callTool("complete_session", nil))
	if w = decodeWritten(t, res); w.Value.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", w.Value.Status)
	}

	res, _ = f.h.completeSession(f.ctx, callTool("complete_session", nil))
	if !res.IsError || !strings.HasPrefix(resultText(t, res), "complete failed: conflict") {
		t.Errorf("second complete = %q, want conflict error", resultText(t, res))
	}

	res, _ = f.h.listExercises(f.ctx, callTool("list_exercises", nil))
	if got := resultText(t, res); got != `["Squat"]` {
		t.Errorf("list_exercises = %s", got)
	}
}

// TestToolArgumentErrors verifies bad arguments become tool errors, not
// protocol errors.
func TestToolArgumentErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		call func() (*mcp.CallToolResult, error)
	}{
		{"missing day", func() (*mcp.CallToolResult, error) {
			return f.h.startSession(f.ctx, callTool("start_session", nil))
		}},
		{"bad day", func() (*mcp.CallToolResult, error) {
			return f.h.startSession(f.ctx, callTool("start_session", map[string]any{"day_id": "nope"}))
		}},
		{"unknown day", func() (*mcp.CallToolResult, error) {
			return f.h.startSession(f.ctx, callTool("start_session", map[string]any{"day_id": uuid.NewString()}))
		}},
		{"zero set", func() (*mcp.CallToolResult, error) {
			return f.h.logSet(f.ctx, callTool("log_set", map[string]any{"exercise_log_id": uuid.NewString(), "set_number": 0.0}))
		}},
		{"bad status", func() (*mcp.CallToolResult, error) {
			return f.h.logSet(f.ctx, callTool("log_set", map[string]any{
				"exercise_log_id": uuid.NewString(), "set_number": 1.0, "status": "great",
			}))
		}},
		{"bad history filter", func() (*mcp.CallToolResult, error) {
			return f.h.getHistory(f.ctx, callTool("get_history", map[string]any{"status": "in_progress"}))
		}},
		{"no user", func() (*mcp.CallToolResult, error) {
			return f.h.getDashboard(context.Background(), callTool("get_dashboard", nil))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.call()
			if err != nil {
				t.Fatalf("protocol error: %v", err)
			}
			if !res.IsError {
				t.Errorf("expected tool error, got %s", resultText(t, res))
			}
		})
	}
}

// TestActivePlanResource verifies the resource returns the active plan.
func TestActivePlanResource(t *testing.T) {
	f := newFixture(t)
	var req mcp.ReadResourceRequest
	req.Params.URI = "wotracker://active_plan"

	contents, err := f.h.activePlan(f.ctx, req)
	if err != nil {
		t.Fatalf("activePlan: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.URI != req.Params.URI || tc.MIMEType != "application/json" {
		t.Errorf("contents = %+v", tc)
	}
	var plan models.Plan
	if err := json.Unmarshal([]byte(tc.Text), &plan); err != nil {
		t.Fatalf("decoding plan: %v", err)
	}
	if plan.ID != f.plan.ID || len(plan.Days) != 1 {
		t.Errorf("plan = %+v", plan)
	}

	req.Params.URI = "wotracker://active_session"
	contents, err = f.h.activeSession(f.ctx, req)
	if err != nil {
		t.Fatalf("activeSession: %v", err)
	}
	if text := contents[0].(mcp.TextResourceContents).Text; text != "null" {
		t.Errorf("active session = %s, want null", text)
	}
}

// TestRemoteSource verifies the remote source forwards to the REST API.
func TestRemoteSource(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["Bench Press","Squat"]`))
	}))
	defer srv.Close()

	ds := NewRemoteSource(client.New(srv.URL))
	names, err := ds.ExerciseNames(context.Background(), 0)
	if err != nil {
		t.Fatalf("ExerciseNames: %v", err)
	}
	if gotPath != "/api/v1/exercises" {
		t.Errorf("path = %s, want /api/v1/exercises", gotPath)
	}
	if len(names) != 2 || names[1] != "Squat" {
		t.Errorf("names = %v", names)
	}
}
