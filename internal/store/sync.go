package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type dirtySet struct {
	plans        map[uuid.UUID]struct{}
	deletedPlans map[uuid.UUID]struct{}
	sessions     map[uuid.UUID]struct{}
	activePlan   bool
	settings     bool
}

func newDirtySet() dirtySet {
	return dirtySet{
		plans:        make(map[uuid.UUID]struct{}),
		deletedPlans: make(map[uuid.UUID]struct{}),
		sessions:     make(map[uuid.UUID]struct{}),
	}
}

// Unsynced counts entities whose last write failed.
type Unsynced struct {
	Plans        int  `json:"plans"`
	DeletedPlans int  `json:"deleted_plans"`
	Sessions     int  `json:"sessions"`
	ActivePlan   bool `json:"active_plan"`
	Settings     bool `json:"settings"`
}

// Total is the number of pending writes.
func (u Unsynced) Total() int {
	n := u.Plans + u.DeletedPlans + u.Sessions
	if u.ActivePlan {
		n++
	}
	if u.Settings {
		n++
	}
	return n
}

// Unsynced reports what Sync would retry.
func (s *Store) Unsynced() Unsynced {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.unsyncedLocked()
}

func (s *Store) unsyncedLocked() Unsynced {
	return Unsynced{
		Plans:        len(s.dirty.plans),
		DeletedPlans: len(s.dirty.deletedPlans),
		Sessions:     len(s.dirty.sessions),
		ActivePlan:   s.dirty.activePlan,
		Settings:     s.dirty.settings,
	}
}

func (s *Store) reportDirty() {
	if s.metrics == nil {
		return
	}
	u := s.Unsynced()
	s.metrics.SetDirty(entityPlan, u.Plans+u.DeletedPlans)
	s.metrics.SetDirty(entitySession, u.Sessions)
	s.metrics.SetDirty(entityActivePlan, boolToInt(u.ActivePlan))
	s.metrics.SetDirty(entitySettings, boolToInt(u.Settings))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Sync rewrites every dirty entity from the current in-memory state. Plans
// go first so the active reference can resolve, and finished sessions go
// before the in-progress one so the single in-progress constraint holds.
// The returned Unsynced is what is still dirty afterwards.
func (s *Store) Sync(ctx context.Context) (Unsynced, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return Unsynced{}, err
	}
	defer unlock()

	s.stateMu.RLock()
	dirty := dirtySet{
		plans:        copyIDs(s.dirty.plans),
		deletedPlans: copyIDs(s.dirty.deletedPlans),
		sessions:     copyIDs(s.dirty.sessions),
		activePlan:   s.dirty.activePlan,
		settings:     s.dirty.settings,
	}
	s.stateMu.RUnlock()

	var res PersistResult
	for id := range dirty.deletedPlans {
		res = res.merge(s.persistPlanDelete(ctx, st.UserID, id))
	}
	for _, p := range st.Plans {
		if _, ok := dirty.plans[p.ID]; ok {
			res = res.merge(s.persistPlan(ctx, st.UserID, p))
		}
	}
	if dirty.activePlan {
		res = res.merge(s.persistActivePlan(ctx, st.UserID, st.ActivePlanID))
	}
	for _, sess := range st.Sessions {
		if _, ok := dirty.sessions[sess.ID]; ok {
			res = res.merge(s.persistSession(ctx, st.UserID, sess))
		}
	}
	if st.ActiveSession != nil {
		if _, ok := dirty.sessions[st.ActiveSession.ID]; ok {
			res = res.merge(s.persistSession(ctx, st.UserID, *st.ActiveSession))
		}
	}
	if dirty.settings {
		res = res.merge(s.persistSettings(ctx, st.UserID, st.Settings))
	}

	s.dropOrphans(st)
	s.metrics.ObserveSync(res.Err)

	left := s.Unsynced()
	if !res.OK() {
		s.log.Warn("sync incomplete", "user_id", st.UserID, "remaining", left.Total(), "error", res.Err)
		return left, errors.Join(errSyncIncomplete, res.Err)
	}
	return left, nil
}

var errSyncIncomplete = errors.New("sync incomplete")

// dropOrphans forgets dirty plan IDs that no longer exist in memory.
func (s *Store) dropOrphans(st State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	for id := range s.dirty.plans {
		if st.planIndex(id) < 0 {
			delete(s.dirty.plans, id)
		}
	}
	for id := range s.dirty.sessions {
		if st.sessionIndex(id) < 0 && (st.ActiveSession == nil || st.ActiveSession.ID != id) {
			delete(s.dirty.sessions, id)
		}
	}
}

func copyIDs(m map[uuid.UUID]struct{}) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(m))
	for id := range m {
		out[id] = struct{}{}
	}
	return out
}
