// Package store holds one user's plans, sessions and settings in memory and
// writes every change through to a repository.
//
// Mutations are serialised per store. Each one applies its change through
// Reduce first, so readers see it immediately, then persists. A failed
// persist leaves the change in place and marks the entity dirty; Sync
// retries dirty entities.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/claude/wotracker/internal/metrics"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/repository"
)

var (
	// ErrNotFound is returned for an unknown plan, day, exercise or session.
	ErrNotFound = repository.ErrNotFound
	// ErrNoUser is returned by mutations on a store with no loaded user.
	ErrNoUser = errors.New("no user loaded")
	// ErrNoActiveSession is returned when a session operation needs one.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionInProgress is returned when starting a session while another
	// one is still in progress.
	ErrSessionInProgress = errors.New("a session is already in progress")
)

// Entity names used in logs and metrics.
const (
	entityPlan       = "plan"
	entityActivePlan = "active_plan"
	entitySession    = "session"
	entitySettings   = "settings"
)

// PersistResult is the outcome of writing a mutation to the repository.
// The in-memory change stands either way.
type PersistResult struct {
	Err error
}

// OK reports whether every write succeeded.
func (r PersistResult) OK() bool {
	return r.Err == nil
}

func (r PersistResult) merge(o PersistResult) PersistResult {
	return PersistResult{Err: errors.Join(r.Err, o.Err)}
}

// Store is the application state for one user.
type Store struct {
	repo    repository.Repository
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// mu serialises mutations, including their repository writes.
	mu sync.Mutex

	stateMu sync.RWMutex
	state   State
	dirty   dirtySet
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics reports persistence outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New returns an empty store. Call Load before mutating.
func New(repo repository.Repository, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		log:   log,
		now:   time.Now,
		state: State{Settings: models.DefaultSettings()},
		dirty: newDirtySet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches everything for userID in one batch and replaces the state.
// The loading flag is set while the fetches run. On error the previous
// state is kept.
func (s *Store) Load(ctx context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(LoadingSet{Loading: true})

	loaded := DataLoaded{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plans, err := s.repo.FetchPlans(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetching plans: %w", err)
		}
		loaded.Plans = plans
		return nil
	})
	g.Go(func() error {
		sessions, err := s.repo.FetchSessions(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetching sessions: %w", err)
		}
		for _, sess := range sessions {
			if sess.Status.Finished() {
				loaded.Sessions = append(loaded.Sessions, sess)
			}
		}
		return nil
	})
	g.Go(func() error {
		id, err := s.repo.ActivePlanID(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetching active plan: %w", err)
		}
		loaded.ActivePlanID = id
		return nil
	})
	g.Go(func() error {
		active, err := s.repo.ActiveSession(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetching active session: %w", err)
		}
		loaded.ActiveSession = active
		return nil
	})
	g.Go(func() error {
		settings, err := s.repo.FetchSettings(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetching settings: %w", err)
		}
		loaded.Settings = settings
		return nil
	})

	if err := g.Wait(); err != nil {
		s.apply(LoadingSet{Loading: false})
		return err
	}

	s.apply(loaded)
	s.stateMu.Lock()
	s.dirty = newDirtySet()
	s.stateMu.Unlock()
	s.reportDirty()

	s.log.Debug("store loaded", "user_id", userID,
		"plans", len(loaded.Plans), "sessions", len(loaded.Sessions),
		"active_session", loaded.ActiveSession != nil)
	return nil
}

// Reset drops all state and leaves the store inert until the next Load.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(DataReset{})
	s.stateMu.Lock()
	s.dirty = newDirtySet()
	s.stateMu.Unlock()
	s.reportDirty()
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.clone()
}

// UserID returns the loaded user, or 0.
func (s *Store) UserID() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.UserID
}

func (s *Store) apply(a Action) State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state
}

// snapshot returns the current state without copying. Callers must hold mu
// and must not modify the result.
func (s *Store) snapshot() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// begin locks the store for a mutation and returns the current state.
func (s *Store) begin() (State, func(), error) {
	s.mu.Lock()
	st := s.snapshot()
	if st.UserID == 0 {
		s.mu.Unlock()
		return st, func() {}, ErrNoUser
	}
	return st, s.mu.Unlock, nil
}

func (s *Store) persistPlan(ctx context.Context, userID int, p models.Plan) PersistResult {
	_, err := s.repo.SavePlan(ctx, userID, p)
	s.record(entityPlan, p.ID, err, func(d *dirtySet) {
		d.plans[p.ID] = struct{}{}
	}, func(d *dirtySet) {
		delete(d.plans, p.ID)
	})
	return PersistResult{Err: err}
}

func (s *Store) persistPlanDelete(ctx context.Context, userID int, id uuid.UUID) PersistResult {
	_, err := s.repo.DeletePlan(ctx, userID, id)
	s.record(entityPlan, id, err, func(d *dirtySet) {
		delete(d.plans, id)
		d.deletedPlans[id] = struct{}{}
	}, func(d *dirtySet) {
		delete(d.plans, id)
		delete(d.deletedPlans, id)
	})
	return PersistResult{Err: err}
}

func (s *Store) persistActivePlan(ctx context.Context, userID int, id uuid.UUID) PersistResult {
	err := s.repo.SetActivePlan(ctx, userID, id)
	s.record(entityActivePlan, id, err, func(d *dirtySet) {
		d.activePlan = true
	}, func(d *dirtySet) {
		d.activePlan = false
	})
	return PersistResult{Err: err}
}

func (s *Store) persistSession(ctx context.Context, userID int, sess models.Session) PersistResult {
	_, err := s.repo.SaveSession(ctx, userID, sess)
	s.record(entitySession, sess.ID, err, func(d *dirtySet) {
		d.sessions[sess.ID] = struct{}{}
	}, func(d *dirtySet) {
		delete(d.sessions, sess.ID)
	})
	return PersistResult{Err: err}
}

func (s *Store) persistSettings(ctx context.Context, userID int, settings models.Settings) PersistResult {
	err := s.repo.SaveSettings(ctx, userID, settings)
	s.record(entitySettings, uuid.Nil, err, func(d *dirtySet) {
		d.settings = true
	}, func(d *dirtySet) {
		d.settings = false
	})
	return PersistResult{Err: err}
}

// record updates dirty tracking, logs failures and reports metrics.
func (s *Store) record(entity string, id uuid.UUID, err error, markDirty, markClean func(*dirtySet)) {
	s.metrics.ObservePersist(entity, err)

	s.stateMu.Lock()
	if err != nil {
		markDirty(&s.dirty)
	} else {
		markClean(&s.dirty)
	}
	s.stateMu.Unlock()
	s.reportDirty()

	if err != nil {
		s.log.Error("persist failed, entity marked unsynced",
			"entity", entity, "id", id, "error", err)
	}
}
