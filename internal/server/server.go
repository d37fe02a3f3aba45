// Package server exposes the workout store over a JSON HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/wotracker/internal/ingest/alpha"
	"github.com/claude/wotracker/internal/metrics"
	"github.com/claude/wotracker/internal/nutrition"
	"github.com/claude/wotracker/internal/repository"
	"github.com/claude/wotracker/internal/store"
)

// Backend is the storage the server reads directly, beside the stores.
type Backend interface {
	repository.Admin
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db        Backend
	stores    *store.Registry
	alpha     *alpha.Provider
	nutrition nutrition.Analyzer
	metrics   *metrics.Metrics
	tailscale WhoIser
	mcp       http.Handler
	log       *slog.Logger
	apiKey    string
	devLogin  string
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey protects the import endpoint with key.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithDevLogin sets the identity used when Tailscale is not attached.
func WithDevLogin(login string) Option {
	return func(s *Server) { s.devLogin = login }
}

// WithNutrition enables the nutrition endpoints.
func WithNutrition(a nutrition.Analyzer) Option {
	return func(s *Server) { s.nutrition = a }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMCP mounts an MCP handler at /mcp behind the identity middleware.
func WithMCP(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// New creates a new Server with all routes configured.
func New(db Backend, stores *store.Registry, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		db:     db,
		stores: stores,
		alpha:  alpha.NewProvider(log, time.Local),
		log:    log,
		router: chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// SetTailscale resolves request identities through Tailscale WhoIs.
func (s *Server) SetTailscale(w WhoIser) {
	s.tailscale = w
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log, s.metrics))
	s.router.Use(CORS)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/me", s.handleMe)
		r.Get("/state", s.handleState)

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", s.handleListPlans)
			r.Post("/", s.handleCreatePlan)
			r.Get("/{id}", s.handleGetPlan)
			r.Put("/{id}", s.handleUpdatePlan)
			r.Delete("/{id}", s.handleDeletePlan)
			r.Post("/{id}/activate", s.handleActivatePlan)
			r.Post("/{id}/days", s.handleAddDay)
			r.Put("/{id}/days/{dayID}", s.handleUpdateDay)
			r.Delete("/{id}/days/{dayID}", s.handleDeleteDay)
			r.Post("/{id}/days/{dayID}/exercises", s.handleAddExercise)
			r.Put("/{id}/days/{dayID}/exercises", s.handleReorderExercises)
			r.Put("/{id}/days/{dayID}/exercises/{exID}", s.handleUpdateExercise)
			r.Delete("/{id}/days/{dayID}/exercises/{exID}", s.handleDeleteExercise)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleActiveSession)
			r.Post("/", s.handleStartSession)
			r.Put("/", s.handleUpdateSession)
			r.Post("/sets", s.handleLogSet)
			r.Post("/swap", s.handleSwapExercise)
			r.Put("/notes", s.handleActiveNotes)
			r.Post("/complete", s.handleCompleteSession)
			r.Post("/abandon", s.handleAbandonSession)
		})

		r.Get("/sessions", s.handleHistory)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Put("/sessions/{id}/notes", s.handleSessionNotes)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/exercises", s.handleExerciseNames)
		r.Get("/exercises/{name}", s.handleExerciseProgress)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Post("/sync", s.handleSync)
		r.Post("/signout", s.handleSignOut)
		r.Get("/stats", s.handleStats)
		r.Get("/imports", s.handleImportLogs)

		r.Post("/nutrition/chat", s.handleNutritionChat)
		r.Post("/nutrition/analyze", s.handleNutritionAnalyze)

		// Write access for scripted imports needs the API key as well.
		r.With(APIKeyAuth(s.apiKey)).Post("/import/alpha", s.handleAlphaImport)
	})

	if s.mcp != nil {
		s.router.With(s.identity).Handle("/mcp", s.mcp)
	}
}
