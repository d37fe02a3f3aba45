package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/nutrition"
	"github.com/claude/wotracker/internal/session"
	"github.com/claude/wotracker/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, session.ErrLogNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalid), errors.Is(err, session.ErrEmptyDay):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrSessionInProgress),
		errors.Is(err, store.ErrNoActiveSession),
		errors.Is(err, session.ErrNotActive):
		return http.StatusConflict
	case errors.Is(err, store.ErrNoUser):
		return http.StatusUnauthorized
	case errors.Is(err, nutrition.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, nutrition.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, api.Error{Error: err.Error()})
}

// writeResult writes a mutation response. A failed write keeps the change
// in memory and is flagged with the unsynced header.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, status int, v any, res store.PersistResult) {
	if !res.OK() {
		s.log.Warn("change kept in memory, write failed", "path", r.URL.Path, "error", res.Err)
		w.Header().Set(api.HeaderUnsynced, "true")
	}
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, v)
}

// userStore returns the caller's store, loading it on first use.
func (s *Server) userStore(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return nil, false
	}
	st, err := s.stores.For(r.Context(), uid)
	if err != nil {
		s.log.Error("loading user data", "user_id", uid, "error", err)
		writeJSON(w, http.StatusInternalServerError, api.Error{Error: "loading user data"})
		return nil, false
	}
	return st, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "invalid " + key})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
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
	if out.Plans == nil {
		out.Plans = []models.Plan{}
	}
	if out.Sessions == nil {
		out.Sessions = []models.Session{}
	}
	writeJSON(w, http.StatusOK, out)
}
