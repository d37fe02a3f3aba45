package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/session"
)

// StartOptions controls StartSession when a session is already active.
type StartOptions struct {
	// AbandonCurrent abandons the in-progress session before starting.
	AbandonCurrent bool `json:"abandon_current"`
}

// StartSession starts a session for dayID, which may be in any plan.
func (s *Store) StartSession(ctx context.Context, dayID uuid.UUID, opts StartOptions) (models.Session, PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return models.Session{}, PersistResult{}, err
	}
	defer unlock()

	plan, day, ok := models.FindDay(st.Plans, dayID)
	if !ok {
		return models.Session{}, PersistResult{}, fmt.Errorf("day %s: %w", dayID, ErrNotFound)
	}
	if st.ActiveSession != nil && !opts.AbandonCurrent {
		return models.Session{}, PersistResult{}, ErrSessionInProgress
	}

	now := s.now()
	next, err := session.Start(plan, day, now)
	if err != nil {
		return models.Session{}, PersistResult{}, err
	}

	var res PersistResult
	if st.ActiveSession != nil {
		abandoned, err := session.Abandon(*st.ActiveSession, now)
		if err != nil {
			return models.Session{}, PersistResult{}, err
		}
		s.apply(SessionFinished{Session: abandoned})
		res = s.persistSession(ctx, st.UserID, abandoned)
		s.log.Info("session abandoned for new start", "user_id", st.UserID, "session_id", abandoned.ID)
	}

	s.apply(SessionStarted{Session: next})
	res = res.merge(s.persistSession(ctx, st.UserID, next))
	s.log.Info("session started", "user_id", st.UserID, "session_id", next.ID, "day", next.DayName)
	return next, res, nil
}

// LogSet records a set on the active session.
func (s *Store) LogSet(ctx context.Context, logID uuid.UUID, in session.SetInput) (models.Session, PersistResult, error) {
	return s.editActive(ctx, func(cur models.Session) (models.Session, error) {
		return session.LogSet(cur, logID, in, s.now())
	})
}

// SkipSet records setNumber as skipped.
func (s *Store) SkipSet(ctx context.Context, logID uuid.UUID, setNumber int) (models.Session, PersistResult, error) {
	return s.editActive(ctx, func(cur models.Session) (models.Session, error) {
		return session.SkipSet(cur, logID, setNumber, s.now())
	})
}

// FailSet records setNumber as failed.
func (s *Store) FailSet(ctx context.Context, logID uuid.UUID, setNumber int, weight float64, reps int) (models.Session, PersistResult, error) {
	return s.editActive(ctx, func(cur models.Session) (models.Session, error) {
		return session.FailSet(cur, logID, setNumber, weight, reps, s.now())
	})
}

// SwapExercise renames one exercise for the active session only.
func (s *Store) SwapExercise(ctx context.Context, logID uuid.UUID, name string) (models.Session, PersistResult, error) {
	return s.editActive(ctx, func(cur models.Session) (models.Session, error) {
		return session.SwapExercise(cur, logID, name)
	})
}

// UpdateSession applies an edited copy of the active session. Only the notes,
// exercise names and logged sets are taken from sess. Every exercise log of
// the active session must be present exactly once. Sets are rebuilt by set
// number, so a repeated number keeps the last entry.
func (s *Store) UpdateSession(ctx context.Context, sess models.Session) (models.Session, PersistResult, error) {
	return s.editActive(ctx, func(cur models.Session) (models.Session, error) {
		if sess.ID != cur.ID {
			return cur, fmt.Errorf("session %s: %w", sess.ID, ErrNotFound)
		}
		if sess.Status != models.StatusInProgress {
			return cur, fmt.Errorf("%w: use complete or abandon to finish a session", models.ErrInvalid)
		}
		if len(sess.ExerciseLogs) != len(cur.ExerciseLogs) {
			return cur, fmt.Errorf("%w: session has %d exercise logs, got %d",
				models.ErrInvalid, len(cur.ExerciseLogs), len(sess.ExerciseLogs))
		}

		edits := make(map[uuid.UUID]models.ExerciseLog, len(sess.ExerciseLogs))
		for _, l := range sess.ExerciseLogs {
			if cur.LogIndex(l.ID) < 0 {
				return cur, fmt.Errorf("exercise log %s: %w", l.ID, ErrNotFound)
			}
			if _, dup := edits[l.ID]; dup {
				return cur, fmt.Errorf("%w: exercise log %s repeated", models.ErrInvalid, l.ID)
			}
			edits[l.ID] = l
		}

		next := cur.Clone()
		next.Notes = sess.Notes
		for i, l := range next.ExerciseLogs {
			edit := edits[l.ID]
			if name := strings.TrimSpace(edit.ExerciseName); name != "" {
				l.ExerciseName = name
			}
			l.Sets = []models.SetLog{}
			for _, set := range edit.Sets {
				if set.Timestamp.IsZero() {
					set.Timestamp = s.now()
				}
				if set.ID == uuid.Nil {
					set.ID = uuid.New()
				}
				if set.Status == "" {
					set.Status = models.SetCompleted
				}
				if set.Status == models.SetSkipped {
					set.Weight, set.Reps = 0, 0
				}
				l = session.WithSet(l, set)
			}
			next.ExerciseLogs[i] = l
		}
		if err := models.Validate(next); err != nil {
			return cur, err
		}
		return next, nil
	})
}

// CompleteSession finishes the active session as completed.
func (s *Store) CompleteSession(ctx context.Context) (models.Session, PersistResult, error) {
	return s.finishActive(ctx, session.Complete)
}

// AbandonSession finishes the active session as abandoned.
func (s *Store) AbandonSession(ctx context.Context) (models.Session, PersistResult, error) {
	return s.finishActive(ctx, session.Abandon)
}

// UpdateNotes sets notes on the active session or on a finished one.
func (s *Store) UpdateNotes(ctx context.Context, sessionID uuid.UUID, notes string) (models.Session, PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return models.Session{}, PersistResult{}, err
	}
	defer unlock()

	if st.ActiveSession != nil && st.ActiveSession.ID == sessionID {
		next := session.UpdateNotes(*st.ActiveSession, notes)
		s.apply(SessionUpdated{Session: next})
		return next, s.persistSession(ctx, st.UserID, next), nil
	}
	i := st.sessionIndex(sessionID)
	if i < 0 {
		return models.Session{}, PersistResult{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	next := session.UpdateNotes(st.Sessions[i], notes)
	s.apply(HistorySessionUpdated{Session: next})
	return next, s.persistSession(ctx, st.UserID, next), nil
}

// ActiveSession returns a copy of the in-progress session, or nil.
func (s *Store) ActiveSession() *models.Session {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.state.ActiveSession == nil {
		return nil
	}
	c := s.state.ActiveSession.Clone()
	return &c
}

// Session returns the active or finished session with the given ID.
func (s *Store) Session(id uuid.UUID) (models.Session, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if a := s.state.ActiveSession; a != nil && a.ID == id {
		return a.Clone(), true
	}
	if i := s.state.sessionIndex(id); i >= 0 {
		return s.state.Sessions[i].Clone(), true
	}
	return models.Session{}, false
}

// ImportResult summarises ImportSessions.
type ImportResult struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// ImportSessions adds finished sessions to history. Sessions whose ID is
// already known, and in-progress sessions, are skipped.
func (s *Store) ImportSessions(ctx context.Context, sessions []models.Session) (ImportResult, PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return ImportResult{}, PersistResult{}, err
	}
	defer unlock()

	result := ImportResult{Received: len(sessions)}
	known := make(map[uuid.UUID]struct{}, len(st.Sessions)+1)
	for _, sess := range st.Sessions {
		known[sess.ID] = struct{}{}
	}
	if st.ActiveSession != nil {
		known[st.ActiveSession.ID] = struct{}{}
	}

	var fresh []models.Session
	for _, sess := range sessions {
		if _, dup := known[sess.ID]; dup || !sess.Status.Finished() {
			result.Skipped++
			continue
		}
		if err := models.Validate(sess); err != nil {
			s.log.Warn("skipping invalid imported session", "session_id", sess.ID, "error", err)
			result.Skipped++
			continue
		}
		known[sess.ID] = struct{}{}
		fresh = append(fresh, sess.Clone())
	}
	if len(fresh) == 0 {
		return result, PersistResult{}, nil
	}

	s.apply(SessionsImported{Sessions: fresh})
	var res PersistResult
	for _, sess := range fresh {
		r := s.persistSession(ctx, st.UserID, sess)
		if !r.OK() {
			result.Failed++
		}
		res = res.merge(r)
	}
	result.Inserted = len(fresh)
	return result, res, nil
}

// editActive applies fn to the active session and persists the result.
func (s *Store) editActive(ctx context.Context, fn func(models.Session) (models.Session, error)) (models.Session, PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return models.Session{}, PersistResult{}, err
	}
	defer unlock()

	if st.ActiveSession == nil {
		return models.Session{}, PersistResult{}, ErrNoActiveSession
	}
	next, err := fn(*st.ActiveSession)
	if err != nil {
		if errors.Is(err, session.ErrLogNotFound) {
			return models.Session{}, PersistResult{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return models.Session{}, PersistResult{}, err
	}
	s.apply(SessionUpdated{Session: next})
	return next, s.persistSession(ctx, st.UserID, next), nil
}

func (s *Store) finishActive(ctx context.Context, fn func(models.Session, time.Time) (models.Session, error)) (models.Session, PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return models.Session{}, PersistResult{}, err
	}
	defer unlock()

	if st.ActiveSession == nil {
		return models.Session{}, PersistResult{}, ErrNoActiveSession
	}
	done, err := fn(*st.ActiveSession, s.now())
	if err != nil {
		return models.Session{}, PersistResult{}, err
	}
	s.apply(SessionFinished{Session: done})
	s.log.Info("session finished", "user_id", st.UserID, "session_id", done.ID, "status", done.Status)
	return done, s.persistSession(ctx, st.UserID, done), nil
}
