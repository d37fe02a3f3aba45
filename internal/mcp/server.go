package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
// It returns 0 when none was injected.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 0
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("wotracker", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Workout tracker. Read training plans, history, personal bests and exercise progress, and drive the active workout session: start a day, log sets, add notes, complete or abandon. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetState, Handler: h.getState},
		server.ServerTool{Tool: toolGetDashboard, Handler: h.getDashboard},
		server.ServerTool{Tool: toolGetHistory, Handler: h.getHistory},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetExerciseProgress, Handler: h.getExerciseProgress},
		server.ServerTool{Tool: toolStartSession, Handler: h.startSession},
		server.ServerTool{Tool: toolLogSet, Handler: h.logSet},
		server.ServerTool{Tool: toolSetNotes, Handler: h.setNotes},
		server.ServerTool{Tool: toolCompleteSession, Handler: h.completeSession},
		server.ServerTool{Tool: toolAbandonSession, Handler: h.abandonSession},
	)

	s.AddResources(
		server.ServerResource{Resource: resDashboard, Handler: h.dashboard},
		server.ServerResource{Resource: resActivePlan, Handler: h.activePlan},
		server.ServerResource{Resource: resActiveSession, Handler: h.activeSession},
	)

	return s
}

// NewHTTPHandler serves s over streamable HTTP. userID resolves the caller
// from the request context set by the surrounding middleware.
func NewHTTPHandler(s *server.MCPServer, userID func(context.Context) (int, bool)) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if id, ok := userID(r.Context()); ok {
				return WithUserID(ctx, id)
			}
			return ctx
		}),
	)
}

// ServeStdio runs s on stdin/stdout as userID until the client disconnects.
func ServeStdio(s *server.MCPServer, userID int) error {
	return server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return WithUserID(ctx, userID)
	}))
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resDashboard = mcp.NewResource(
	"wotracker://dashboard",
	"Dashboard",
	mcp.WithResourceDescription("Session totals, this week, streak, monthly goal completion and recent sessions"),
	mcp.WithMIMEType("application/json"),
)

var resActivePlan = mcp.NewResource(
	"wotracker://active_plan",
	"Active Plan",
	mcp.WithResourceDescription("The active training plan with its days and exercises; day IDs start sessions"),
	mcp.WithMIMEType("application/json"),
)

var resActiveSession = mcp.NewResource(
	"wotracker://active_session",
	"Active Session",
	mcp.WithResourceDescription("The in-progress workout session with exercise log IDs and logged sets, or null"),
	mcp.WithMIMEType("application/json"),
)
