package server

import (
	"net/http"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/session"
	"github.com/claude/wotracker/internal/store"
)

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	// null when no session is in progress
	writeJSON(w, http.StatusOK, us.ActiveSession())
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	var req api.StartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, res, err := us.StartSession(r.Context(), req.DayID, store.StartOptions{AbandonCurrent: req.AbandonCurrent})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusCreated, sess, res)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	var sess models.Session
	if !decodeJSON(w, r, &sess) {
		return
	}
	updated, res, err := us.UpdateSession(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, updated, res)
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	var req api.LogSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		sess models.Session
		res  store.PersistResult
		err  error
	)
	switch req.Status {
	case models.SetSkipped:
		sess, res, err = us.SkipSet(r.Context(), req.ExerciseLogID, req.SetNumber)
	case models.SetFailed:
		sess, res, err = us.FailSet(r.Context(), req.ExerciseLogID, req.SetNumber, req.Weight, req.Reps)
	default:
		sess, res, err = us.LogSet(r.Context(), req.ExerciseLogID, session.SetInput{
			SetNumber: req.SetNumber,
			Weight:    req.Weight,
			Reps:      req.Reps,
			Status:    req.Status,
		})
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, sess, res)
}

func (s *Server) handleSwapExercise(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	var req api.SwapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, res, err := us.SwapExercise(r.Context(), req.ExerciseLogID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, sess, res)
}

func (s *Server) handleActiveNotes(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	var req api.NotesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	active := us.ActiveSession()
	if active == nil {
		s.writeError(w, r, store.ErrNoActiveSession)
		return
	}
	sess, res, err := us.UpdateNotes(r.Context(), active.ID, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, sess, res)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	sess, res, err := us.CompleteSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, sess, res)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	sess, res, err := us.AbandonSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, sess, res)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	sess, found := us.Session(id)
	if !found {
		s.writeError(w, r, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionNotes(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req api.NotesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, res, err := us.UpdateNotes(r.Context(), id, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, sess, res)
}
