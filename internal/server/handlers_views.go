package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/models"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, us.Dashboard())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	status := models.SessionStatus(r.URL.Query().Get("status"))
	switch status {
	case "", "all":
		status = ""
	case models.StatusCompleted, models.StatusAbandoned:
	default:
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "status must be completed or abandoned"})
		return
	}
	writeJSON(w, http.StatusOK, us.History(status))
}

func (s *Server) handleExerciseNames(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	names := us.ExerciseNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleExerciseProgress(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "invalid exercise name"})
		return
	}
	writeJSON(w, http.StatusOK, us.ExerciseProgress(name))
}
