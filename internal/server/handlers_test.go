package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"tailscale.com/client/tailscale/apitype"
	"tailscale.com/tailcfg"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/calc"
	"github.com/claude/wotracker/internal/ingest"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/nutrition"
	"github.com/claude/wotracker/internal/repository"
	"github.com/claude/wotracker/internal/session"
	"github.com/claude/wotracker/internal/store"
)

// testBackend is the in-memory repository plus a user table.
type testBackend struct {
	*repository.Memory
	mu    sync.Mutex
	users map[string]int
}

func (b *testBackend) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.users[login]; ok {
		return id, nil
	}
	id := len(b.users) + 1
	b.users[login] = id
	return id, nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *testBackend) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := &testBackend{Memory: repository.NewMemory(), users: map[string]int{}}
	return New(db, store.NewRegistry(db, log), log, opts...), db
}

// do sends a JSON request through the full router.
func do(t *testing.T, s *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func samplePlan() models.Plan {
	return models.Plan{
		Name: "Full Body",
		Days: []models.Day{{Name: "A", Exercises: []models.Exercise{
			{Name: "Squat", PlannedSets: 2, PlannedReps: 5},
			{Name: "Press", PlannedSets: 1, PlannedReps: 8},
		}}},
	}
}

func createPlan(t *testing.T, s *Server) models.Plan {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/plans", samplePlan())
	wantStatus(t, rec, http.StatusCreated)
	return decode[models.Plan](t, rec)
}

// TestHandleMe verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMe(t *testing.T) {
	s, _ := newTestServer(t, WithDevLogin("local"))
	rec := do(t, s, http.MethodGet, "/api/v1/me", nil)
	wantStatus(t, rec, http.StatusOK)

	me := decode[api.Me](t, rec)
	if me.Login != "local" || me.DisplayName != devDisplayName || me.UserID != 1 {
		t.Errorf("me = %+v", me)
	}
}

// TestPlanEndpoints verifies plan creation and editing through the API.
func TestPlanEndpoints(t *testing.T) {
	s, _ := newTestServer(t, WithDevLogin("local"))
	p := createPlan(t, s)
	if len(p.Days) != 1 || p.Days[0].Number != 1 || p.Days[0].Exercises[0].ID == uuid.Nil {
		t.Fatalf("created plan = %+v", p)
	}

	rec := do(t, s, http.MethodPost, fmt.Sprintf("/api/v1/plans/%s/days", p.ID), models.Day{Name: "B"})
	wantStatus(t, rec, http.StatusCreated)
	p = decode[models.Plan](t, rec)
	if len(p.Days) != 2 || p.Days[1].Number != 2 {
		t.Fatalf("days after add = %+v", p.Days)
	}

	dayA := p.Days[0]
	order := []uuid.UUID{dayA.Exercises[1].ID, dayA.Exercises[0].ID}
	rec = do(t, s, http.MethodPut, fmt.Sprintf("/api/v1/plans/%s/days/%s/exercises", p.ID, dayA.ID), api.ReorderRequest{Order: order})
	wantStatus(t, rec, http.StatusOK)
	p = decode[models.Plan](t, rec)
	if p.Days[0].Exercises[0].Name != "Press" {
		t.Errorf("first exercise = %q, want Press", p.Days[0].Exercises[0].Name)
	}

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/plans/%s/days/%s", p.ID, dayA.ID), nil)
	wantStatus(t, rec, http.StatusOK)
	p = decode[models.Plan](t, rec)
	if len(p.Days) != 1 || p.Days[0].Name != "B" || p.Days[0].Number != 1 {
		t.Errorf("days after delete = %+v", p.Days)
	}

	rec = do(t, s, http.MethodPost, fmt.Sprintf("/api/v1/plans/%s/activate", p.ID), nil)
	wantStatus(t, rec, http.StatusOK)
	if !decode[models.Plan](t, rec).IsActive {
		t.Error("plan not active after activate")
	}

	rec = do(t, s, http.MethodGet, "/api/v1/plans", nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[[]models.Plan](t, rec); len(got) != 1 {
		t.Errorf("plans = %d, want 1", len(got))
	}

	wantStatus(t, do(t, s, http.MethodDelete, "/api/v1/plans/"+p.ID.String(), nil), http.StatusNoContent)
	wantStatus(t, do(t, s, http.MethodGet, "/api/v1/plans/"+p.ID.String(), nil), http.StatusNotFound)
}

// TestPlanValidation verifies malformed and invalid bodies get 400.
func TestPlanValidation(t *testing.T) {
	s, _ := newTestServer(t, WithDevLogin("local"))
	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/plans", "{not json"), http.StatusBadRequest)
	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/plans", models.Plan{Name: ""}), http.StatusBadRequest)
	wantStatus(t, do(t, s, http.MethodPut, "/api/v1/plans/not-a-uuid", samplePlan()), http.StatusBadRequest)
}

// TestSessionFlow verifies a session from start through completion and the
// views that derive from it.
func TestSessionFlow(t *testing.T) {
	s, _ := newTestServer(t, WithDevLogin("local"))
	p := createPlan(t, s)
	day := p.Days[0]

	rec := do(t, s, http.MethodGet, "/api/v1/session", nil)
	wantStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "null" {
		t.Errorf("active session before start = %s", rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/v1/session", api.StartRequest{DayID: day.ID})
	wantStatus(t, rec, http.StatusCreated)
	sess := decode[models.Session](t, rec)
	if sess.Status != models.StatusInProgress || len(sess.ExerciseLogs) != 2 {
		t.Fatalf("started session = %+v", sess)
	}

	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/session", api.StartRequest{DayID: day.ID}), http.StatusConflict)

	squat := sess.ExerciseLogs[0].ID
	for n := 1; n <= 2; n++ {
		rec = do(t, s, http.MethodPost, "/api/v1/session/sets", api.LogSetRequest{ExerciseLogID: squat, SetNumber: n, Weight: 100, Reps: 5})
		wantStatus(t, rec, http.StatusOK)
	}
	sess = decode[models.Session](t, rec)
	if !sess.ExerciseLogs[0].Completed {
		t.Error("squat not completed after all planned sets")
	}

	press := sess.ExerciseLogs[1].ID
	rec = do(t, s, http.MethodPost, "/api/v1/session/sets", api.LogSetRequest{ExerciseLogID: press, SetNumber: 1, Status: models.SetSkipped, Weight: 40})
	wantStatus(t, rec, http.StatusOK)
	sess = decode[models.Session](t, rec)
	if set := sess.ExerciseLogs[1].Sets[0]; set.Status != models.SetSkipped || set.Weight != 0 {
		t.Errorf("skipped set = %+v", set)
	}

	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/session/sets", api.LogSetRequest{ExerciseLogID: uuid.New(), SetNumber: 1}), http.StatusNotFound)

	rec = do(t, s, http.MethodPut, "/api/v1/session/notes", api.NotesRequest{Notes: "felt strong"})
	wantStatus(t, rec, http.StatusOK)

	rec = do(t, s, http.MethodPost, "/api/v1/session/complete", nil)
	wantStatus(t, rec, http.StatusOK)
	done := decode[models.Session](t, rec)
	if done.Status != models.StatusCompleted || done.CompletedAt == nil || done.Notes != "felt strong" {
		t.Errorf("completed session = %+v", done)
	}

	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/session/abandon", nil), http.StatusConflict)

	rec = do(t, s, http.MethodGet, "/api/v1/sessions?status=completed", nil)
	wantStatus(t, rec, http.StatusOK)
	hist := decode[store.HistoryView](t, rec)
	if hist.Completed != 1 || len(hist.Groups) != 1 || hist.Groups[0].Label != "Today" {
		t.Errorf("history = %+v", hist)
	}
	wantStatus(t, do(t, s, http.MethodGet, "/api/v1/sessions?status=bogus", nil), http.StatusBadRequest)

	rec = do(t, s, http.MethodGet, "/api/v1/dashboard", nil)
	wantStatus(t, rec, http.StatusOK)
	dash := decode[calc.DashboardStats](t, rec)
	if dash.TotalWorkouts != 1 || dash.Completed != 1 || dash.Streak != 1 {
		t.Errorf("dashboard = %+v", dash)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/exercises/Squat", nil)
	wantStatus(t, rec, http.StatusOK)
	prog := decode[calc.ExerciseProgress](t, rec)
	if prog.Stats.TotalSessions != 1 || prog.Stats.PersonalBest == nil || prog.Stats.PersonalBest.Weight != 100 {
		t.Errorf("progress = %+v", prog)
	}

	rec = do(t, s, http.MethodPut, "/api/v1/sessions/"+done.ID.String()+"/notes", api.NotesRequest{Notes: "edited"})
	wantStatus(t, rec, http.StatusOK)
	rec = do(t, s, http.MethodGet, "/api/v1/sessions/"+done.ID.String(), nil)
	if got := decode[models.Session](t, rec); got.Notes != "edited" {
		t.Errorf("notes = %q, want edited", got.Notes)
	}
}

// TestUnsyncedHeader verifies failed writes are kept and flagged, then
// cleared by sync.
func TestUnsyncedHeader(t *testing.T) {
	s, db := newTestServer(t, WithDevLogin("local"))
	db.FailWrites(errors.New("database down"))

	rec := do(t, s, http.MethodPost, "/api/v1/plans", samplePlan())
	wantStatus(t, rec, http.StatusCreated)
	if rec.Header().Get(api.HeaderUnsynced) != "true" {
		t.Error("missing unsynced header")
	}

	rec = do(t, s, http.MethodGet, "/api/v1/state", nil)
	st := decode[api.State](t, rec)
	if len(st.Plans) != 1 || st.Unsynced.Plans != 1 {
		t.Errorf("state = %+v", st)
	}

	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/sync", nil), http.StatusServiceUnavailable)

	db.FailWrites(nil)
	rec = do(t, s, http.MethodPost, "/api/v1/sync", nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[api.SyncResponse](t, rec); got.Unsynced.Total() != 0 {
		t.Errorf("unsynced after sync = %+v", got.Unsynced)
	}
}

// TestSignOut verifies sign-out waits for pending writes and then reloads
// the caller's data from storage on the next request.
func TestSignOut(t *testing.T) {
	s, db := newTestServer(t, WithDevLogin("local"))
	ctx := context.Background()
	createPlan(t, s)

	if _, err := db.SavePlan(ctx, 1, models.Plan{ID: uuid.New(), Name: "Written elsewhere"}); err != nil {
		t.Fatal(err)
	}
	if got := decode[[]models.Plan](t, do(t, s, http.MethodGet, "/api/v1/plans", nil)); len(got) != 1 {
		t.Fatalf("cached plans = %d, want 1", len(got))
	}

	db.FailWrites(errors.New("database down"))
	do(t, s, http.MethodPost, "/api/v1/plans", samplePlan())
	rec := do(t, s, http.MethodPost, "/api/v1/signout", nil)
	wantStatus(t, rec, http.StatusServiceUnavailable)
	if got := decode[api.SyncResponse](t, rec); got.Unsynced.Plans != 1 {
		t.Errorf("pending = %+v", got.Unsynced)
	}

	db.FailWrites(nil)
	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/signout", nil), http.StatusNoContent)
	if got := decode[[]models.Plan](t, do(t, s, http.MethodGet, "/api/v1/plans", nil)); len(got) != 3 {
		t.Errorf("plans after sign-out = %d, want 3", len(got))
	}
}

// TestSettingsEndpoints verifies partial settings updates and validation.
func TestSettingsEndpoints(t *testing.T) {
	s, _ := newTestServer(t, WithDevLogin("local"))
	rec := do(t, s, http.MethodPut, "/api/v1/settings", `{"weight_unit":"lb"}`)
	wantStatus(t, rec, http.StatusOK)
	got := decode[models.Settings](t, rec)
	if got.WeightUnit != models.UnitLb || got.RestTimerDefault != 90 {
		t.Errorf("settings = %+v", got)
	}
	wantStatus(t, do(t, s, http.MethodPut, "/api/v1/settings", `{"weight_unit":"stone"}`), http.StatusBadRequest)
}

// TestUsersAreIsolated verifies each identity sees only its own data.
func TestUsersAreIsolated(t *testing.T) {
	s, _ := newTestServer(t)
	who := &switchableWhoIs{login: "alice@example.com"}
	s.SetTailscale(who)
	createPlan(t, s)

	who.set("bob@example.com")
	rec := do(t, s, http.MethodGet, "/api/v1/plans", nil)
	if got := decode[[]models.Plan](t, rec); len(got) != 0 {
		t.Errorf("bob sees %d plans, want 0", len(got))
	}
}

type switchableWhoIs struct {
	mu    sync.Mutex
	login string
}

func (w *switchableWhoIs) set(login string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.login = login
}

func (w *switchableWhoIs) WhoIs(context.Context, string) (*apitype.WhoIsResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return &apitype.WhoIsResponse{UserProfile: &tailcfg.UserProfile{LoginName: w.login}}, nil
}

const alphaCSV = `"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;100;6;0
`

// TestAlphaImport verifies the import endpoint requires the API key,
// imports idempotently and writes an import log.
func TestAlphaImport(t *testing.T) {
	s, _ := newTestServer(t, WithDevLogin("local"), WithAPIKey("secret"))

	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/import/alpha", alphaCSV), http.StatusUnauthorized)

	rec := do(t, s, http.MethodPost, "/api/v1/import/alpha", alphaCSV, "X-API-Key", "secret")
	wantStatus(t, rec, http.StatusOK)
	res := decode[ingest.Result](t, rec)
	if res.SessionsInserted != 1 || res.SetsReceived != 2 {
		t.Errorf("first import = %+v", res)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/import/alpha", alphaCSV, "X-API-Key", "secret")
	if res := decode[ingest.Result](t, rec); res.SessionsInserted != 0 || res.SessionsSkipped != 1 {
		t.Errorf("second import = %+v", res)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/imports", nil)
	wantStatus(t, rec, http.StatusOK)
	if logs := decode[[]models.ImportLog](t, rec); len(logs) != 2 || logs[0].Status != models.ImportSuccess {
		t.Errorf("import logs = %+v", logs)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/stats", nil)
	if stats := decode[models.DataStats](t, rec); stats.Completed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

type stubAnalyzer struct {
	reply *nutrition.Reply
	err   error
}

func (s stubAnalyzer) Chat(context.Context, []nutrition.Message, string) (*nutrition.Reply, error) {
	return s.reply, s.err
}

func (s stubAnalyzer) AnalyzeText(context.Context, string) (*nutrition.Analysis, error) {
	return &nutrition.Analysis{Summary: "ok", Foods: []nutrition.Food{}}, s.err
}

// TestNutritionChat verifies replies pass through and failures come back
// as a chat-style message with 502.
func TestNutritionChat(t *testing.T) {
	s, _ := newTestServer(t, WithDevLogin("local"))
	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/nutrition/chat", api.ChatRequest{Message: "rice"}), http.StatusServiceUnavailable)

	s, _ = newTestServer(t, WithDevLogin("local"), WithNutrition(stubAnalyzer{
		reply: &nutrition.Reply{Message: "Rice (200g)", Action: nutrition.ActionConfirmAdd},
	}))
	rec := do(t, s, http.MethodPost, "/api/v1/nutrition/chat", api.ChatRequest{Message: "rice 200g"})
	wantStatus(t, rec, http.StatusOK)
	if got := decode[nutrition.Reply](t, rec); got.Action != nutrition.ActionConfirmAdd {
		t.Errorf("reply = %+v", got)
	}
	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/nutrition/chat", api.ChatRequest{}), http.StatusBadRequest)
	wantStatus(t, do(t, s, http.MethodPost, "/api/v1/nutrition/chat", api.ChatRequest{
		Message: "x", History: []nutrition.Message{{Role: openai.ChatMessageRoleSystem, Content: "x"}},
	}), http.StatusBadRequest)

	s, _ = newTestServer(t, WithDevLogin("local"), WithNutrition(stubAnalyzer{err: fmt.Errorf("%w: timeout", nutrition.ErrUpstream)}))
	rec = do(t, s, http.MethodPost, "/api/v1/nutrition/chat", api.ChatRequest{Message: "rice"})
	wantStatus(t, rec, http.StatusBadGateway)
	if got := decode[nutrition.Reply](t, rec); got.Message == "" || got.Action != nutrition.ActionAskDetails {
		t.Errorf("error reply = %+v", got)
	}
}

// TestStatusFor verifies domain errors map to HTTP status codes.
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", session.ErrLogNotFound), http.StatusNotFound},
		{models.ErrInvalid, http.StatusBadRequest},
		{session.ErrEmptyDay, http.StatusBadRequest},
		{store.ErrSessionInProgress, http.StatusConflict},
		{store.ErrNoActiveSession, http.StatusConflict},
		{store.ErrNoUser, http.StatusUnauthorized},
		{nutrition.ErrUpstream, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
