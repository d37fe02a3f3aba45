package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/claude/wotracker/internal/repository"
)

// Registry keeps one loaded Store per user.
type Registry struct {
	repo repository.Repository
	log  *slog.Logger
	opts []Option

	mu     sync.Mutex
	stores map[int]*entry
}

// entry is a store that may still be loading. ready is closed once s or err
// is set.
type entry struct {
	ready chan struct{}
	s     *Store
	err   error
}

// NewRegistry returns a registry whose stores share repo and opts.
func NewRegistry(repo repository.Repository, log *slog.Logger, opts ...Option) *Registry {
	return &Registry{
		repo:   repo,
		log:    log,
		opts:   opts,
		stores: make(map[int]*entry),
	}
}

// For returns the store for userID, loading it on first use. Concurrent
// callers for the same user share one load; other users are not blocked by
// it. A store that fails to load is not kept.
func (r *Registry) For(ctx context.Context, userID int) (*Store, error) {
	r.mu.Lock()
	e, ok := r.stores[userID]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.stores[userID] = e
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-e.ready:
			return e.s, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s := New(r.repo, r.log.With("user_id", userID), r.opts...)
	if err := s.Load(ctx, userID); err != nil {
		r.mu.Lock()
		if r.stores[userID] == e {
			delete(r.stores, userID)
		}
		r.mu.Unlock()
		e.err = err
		close(e.ready)
		return nil, err
	}
	e.s = s
	close(e.ready)
	return s, nil
}

// Evict drops the cached store for userID and resets it. The next For
// reloads from the repository.
func (r *Registry) Evict(userID int) {
	r.mu.Lock()
	e, ok := r.stores[userID]
	delete(r.stores, userID)
	r.mu.Unlock()
	if !ok {
		return
	}
	<-e.ready
	if e.s != nil {
		e.s.Reset()
	}
}

// loaded returns the stores whose load has finished successfully.
func (r *Registry) loaded() []*Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	stores := make([]*Store, 0, len(r.stores))
	for _, e := range r.stores {
		select {
		case <-e.ready:
			if e.s != nil {
				stores = append(stores, e.s)
			}
		default:
		}
	}
	return stores
}

// SyncAll retries dirty entities in every loaded store.
func (r *Registry) SyncAll(ctx context.Context) error {
	var errs []error
	for _, s := range r.loaded() {
		if s.Unsynced().Total() == 0 {
			continue
		}
		if _, err := s.Sync(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
