package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/calc"
	"github.com/claude/wotracker/internal/client"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/session"
	"github.com/claude/wotracker/internal/store"
)

// Written is a session after a write.
type Written = client.Mutation[models.Session]

// DataSource abstracts the data layer for MCP tools. StoreSource (local)
// and RemoteSource (REST API) satisfy it.
type DataSource interface {
	State(ctx context.Context, userID int) (api.State, error)
	Dashboard(ctx context.Context, userID int) (calc.DashboardStats, error)
	History(ctx context.Context, userID int, status models.SessionStatus) (store.HistoryView, error)
	ExerciseNames(ctx context.Context, userID int) ([]string, error)
	ExerciseProgress(ctx context.Context, userID int, name string) (calc.ExerciseProgress, error)

	StartSession(ctx context.Context, userID int, req api.StartRequest) (Written, error)
	LogSet(ctx context.Context, userID int, req api.LogSetRequest) (Written, error)
	SetNotes(ctx context.Context, userID int, notes string) (Written, error)
	CompleteSession(ctx context.Context, userID int) (Written, error)
	AbandonSession(ctx context.Context, userID int) (Written, error)
}

var (
	_ DataSource = (*StoreSource)(nil)
	_ DataSource = (*RemoteSource)(nil)
)

var errNoUser = errors.New("no user in context")

// StoreSource serves tools from the in-process stores.
type StoreSource struct {
	stores *store.Registry
}

// NewStoreSource wraps a registry.
func NewStoreSource(stores *store.Registry) *StoreSource {
	return &StoreSource{stores: stores}
}

func (s *StoreSource) user(ctx context.Context, userID int) (*store.Store, error) {
	if userID <= 0 {
		return nil, errNoUser
	}
	return s.stores.For(ctx, userID)
}

func (s *StoreSource) State(ctx context.Context, userID int) (api.State, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return api.State{}, err
	}
	st := us.State()
	out := api.State{
		Plans:         st.Plans,
		ActiveSession: st.ActiveSession,
		Sessions:      st.Sessions,
		Settings:      st.Settings,
		Unsynced:      us.Unsynced(),
	}
	if st.ActivePlanID != uuid.Nil {
		id := st.ActivePlanID
		out.ActivePlanID = &id
	}
	return out, nil
}

func (s *StoreSource) Dashboard(ctx context.Context, userID int) (calc.DashboardStats, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return calc.DashboardStats{}, err
	}
	return us.Dashboard(), nil
}

func (s *StoreSource) History(ctx context.Context, userID int, status models.SessionStatus) (store.HistoryView, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return store.HistoryView{}, err
	}
	return us.History(status), nil
}

func (s *StoreSource) ExerciseNames(ctx context.Context, userID int) ([]string, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return us.ExerciseNames(), nil
}

func (s *StoreSource) ExerciseProgress(ctx context.Context, userID int, name string) (calc.ExerciseProgress, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return calc.ExerciseProgress{}, err
	}
	return us.ExerciseProgress(name), nil
}

// written folds a store mutation into a Written.
func written(sess models.Session, res store.PersistResult, err error) (Written, error) {
	if err != nil {
		return Written{}, err
	}
	return Written{Value: sess, Unsynced: !res.OK()}, nil
}

func (s *StoreSource) StartSession(ctx context.Context, userID int, req api.StartRequest) (Written, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return Written{}, err
	}
	return written(us.StartSession(ctx, req.DayID, store.StartOptions{AbandonCurrent: req.AbandonCurrent}))
}

func (s *StoreSource) LogSet(ctx context.Context, userID int, req api.LogSetRequest) (Written, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return Written{}, err
	}
	switch req.Status {
	case models.SetSkipped:
		return written(us.SkipSet(ctx, req.ExerciseLogID, req.SetNumber))
	case models.SetFailed:
		return written(us.FailSet(ctx, req.ExerciseLogID, req.SetNumber, req.Weight, req.Reps))
	default:
		return written(us.LogSet(ctx, req.ExerciseLogID, session.SetInput{
			SetNumber: req.SetNumber, Weight: req.Weight, Reps: req.Reps, Status: req.Status,
		}))
	}
}

func (s *StoreSource) SetNotes(ctx context.Context, userID int, notes string) (Written, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return Written{}, err
	}
	active := us.ActiveSession()
	if active == nil {
		return Written{}, store.ErrNoActiveSession
	}
	return written(us.UpdateNotes(ctx, active.ID, notes))
}

func (s *StoreSource) CompleteSession(ctx context.Context, userID int) (Written, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return Written{}, err
	}
	return written(us.CompleteSession(ctx))
}

func (s *StoreSource) AbandonSession(ctx context.Context, userID int) (Written, error) {
	us, err := s.user(ctx, userID)
	if err != nil {
		return Written{}, err
	}
	return written(us.AbandonSession(ctx))
}

// RemoteSource serves tools from a remote server. The server identifies
// the caller itself, so the user ID is ignored. Used for remote MCP mode
// where the binary runs locally (stdio) but data lives on the server.
type RemoteSource struct {
	c *client.Client
}

// NewRemoteSource wraps a REST client.
func NewRemoteSource(c *client.Client) *RemoteSource {
	return &RemoteSource{c: c}
}

func (r *RemoteSource) State(ctx context.Context, _ int) (api.State, error) {
	return r.c.State(ctx)
}

func (r *RemoteSource) Dashboard(ctx context.Context, _ int) (calc.DashboardStats, error) {
	return r.c.Dashboard(ctx)
}

func (r *RemoteSource) History(ctx context.Context, _ int, status models.SessionStatus) (store.HistoryView, error) {
	return r.c.History(ctx, status)
}

func (r *RemoteSource) ExerciseNames(ctx context.Context, _ int) ([]string, error) {
	return r.c.ExerciseNames(ctx)
}

func (r *RemoteSource) ExerciseProgress(ctx context.Context, _ int, name string) (calc.ExerciseProgress, error) {
	return r.c.ExerciseProgress(ctx, name)
}

func (r *RemoteSource) StartSession(ctx context.Context, _ int, req api.StartRequest) (Written, error) {
	return r.c.StartSession(ctx, req)
}

func (r *RemoteSource) LogSet(ctx context.Context, _ int, req api.LogSetRequest) (Written, error) {
	return r.c.LogSet(ctx, req)
}

func (r *RemoteSource) SetNotes(ctx context.Context, _ int, notes string) (Written, error) {
	return r.c.SetNotes(ctx, notes)
}

func (r *RemoteSource) CompleteSession(ctx context.Context, _ int) (Written, error) {
	return r.c.CompleteSession(ctx)
}

func (r *RemoteSource) AbandonSession(ctx context.Context, _ int) (Written, error) {
	return r.c.AbandonSession(ctx)
}

// describe turns a data-source error into a tool error message.
func describe(err error) string {
	switch {
	case errors.Is(err, store.ErrNoActiveSession), errors.Is(err, store.ErrSessionInProgress),
		client.StatusOf(err) == 409:
		return fmt.Sprintf("conflict: %v", err)
	case errors.Is(err, store.ErrNotFound), client.StatusOf(err) == 404:
		return fmt.Sprintf("not found: %v", err)
	default:
		return err.Error()
	}
}
