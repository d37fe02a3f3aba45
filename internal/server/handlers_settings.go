package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/ingest"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/repository"
	"github.com/claude/wotracker/internal/store"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, us.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	var u store.SettingsUpdate
	if !decodeJSON(w, r, &u) {
		return
	}
	settings, res, err := us.UpdateSettings(r.Context(), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, settings, res)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	pending, err := us.Sync(r.Context())
	if err != nil {
		s.log.Warn("sync incomplete", "pending", pending.Total(), "error", err)
		writeJSON(w, http.StatusServiceUnavailable, api.SyncResponse{Unsynced: pending, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, api.SyncResponse{Unsynced: pending})
}

// handleSignOut flushes the caller's pending writes and drops their cached
// store. Nothing is dropped while writes are still pending.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	pending, err := us.Sync(r.Context())
	if err != nil {
		s.log.Warn("sign-out blocked by pending writes", "user_id", uid, "pending", pending.Total(), "error", err)
		writeJSON(w, http.StatusServiceUnavailable, api.SyncResponse{Unsynced: pending, Error: err.Error()})
		return
	}
	s.stores.Evict(uid)
	s.log.Info("user signed out", "user_id", uid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	stats, err := s.db.DataStats(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := repository.DefaultImportLogLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	start := time.Now()
	result, err := s.alpha.Ingest(r.Context(), http.MaxBytesReader(w, r.Body, 32*maxBodyBytes), us)
	s.logImport(us.UserID(), "alpha", result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("alpha import error", "error", err)
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}
	if result.SessionsUnsynced > 0 {
		w.Header().Set(api.HeaderUnsynced, "true")
	}
	writeJSON(w, http.StatusOK, result)
}

// logImport records an import operation's result to the import log.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	entry := models.ImportLog{
		UserID:     uid,
		Source:     source,
		Status:     models.ImportSuccess,
		DurationMs: &durationMs,
	}
	if result != nil {
		entry.SessionsReceived = result.SessionsReceived
		entry.SessionsInserted = result.SessionsInserted
		entry.SetsReceived = result.SetsReceived
	}
	if importErr != nil {
		entry.Status = models.ImportError
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout,
// detached from a request that may already be cancelled.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
