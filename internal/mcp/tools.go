package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/models"
)

// --- Tool definitions ---

var toolGetState = mcp.NewTool("get_state",
	mcp.WithDescription("Return all plans, the active plan ID, the active session, session history, settings and the count of unsynced changes."),
)

var toolGetDashboard = mcp.NewTool("get_dashboard",
	mcp.WithDescription("Session totals (completed, abandoned, this week, streak, monthly goal completion) and the most recent sessions."),
)

var toolGetHistory = mcp.NewTool("get_history",
	mcp.WithDescription("Finished sessions grouped by month, newest first."),
	mcp.WithString("status", mcp.Description("Filter by status. Defaults to all."), mcp.Enum("all", "completed", "abandoned")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List every exercise name from plans and session history, sorted."),
)

var toolGetExerciseProgress = mcp.NewTool("get_exercise_progress",
	mcp.WithDescription("Session count, personal best, last performance, trend, suggested next weight and per-session history for one exercise."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Exercise name, case-insensitive (e.g. Squat, Bench Press)")),
)

var toolStartSession = mcp.NewTool("start_session",
	mcp.WithDescription("Start a workout session for a day of the active plan. Fails when a session is already in progress unless abandon_current is true."),
	mcp.WithString("day_id", mcp.Required(), mcp.Description("Day ID from the active plan (see wotracker://active_plan)")),
	mcp.WithBoolean("abandon_current", mcp.Description("Abandon the in-progress session first. Defaults to false.")),
)

var toolLogSet = mcp.NewTool("log_set",
	mcp.WithDescription("Record a set on the active session. Logging the same set number again replaces it."),
	mcp.WithString("exercise_log_id", mcp.Required(), mcp.Description("Exercise log ID from the active session")),
	mcp.WithNumber("set_number", mcp.Required(), mcp.Description("Set number, starting at 1")),
	mcp.WithNumber("weight", mcp.Description("Weight in the user's unit. Required unless status is skipped.")),
	mcp.WithNumber("reps", mcp.Description("Repetitions performed. Required unless status is skipped.")),
	mcp.WithString("status", mcp.Description("Set outcome. Defaults to completed."), mcp.Enum("completed", "failed", "skipped")),
)

var toolSetNotes = mcp.NewTool("set_session_notes",
	mcp.WithDescription("Replace the notes on the active session."),
	mcp.WithString("notes", mcp.Required(), mcp.Description("Notes text; empty clears them")),
)

var toolCompleteSession = mcp.NewTool("complete_session",
	mcp.WithDescription("Finish the active session as completed and move it to history."),
)

var toolAbandonSession = mcp.NewTool("abandon_session",
	mcp.WithDescription("Finish the active session as abandoned and move it to history."),
)

// --- Tool handlers ---

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ds.State(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_state", "error", err)
		return mcp.NewToolResultError("query failed: " + describe(err)), nil
	}
	return jsonResult(st)
}

func (h *handlers) getDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.Dashboard(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_dashboard", "error", err)
		return mcp.NewToolResultError("query failed: " + describe(err)), nil
	}
	return jsonResult(stats)
}

func (h *handlers) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status models.SessionStatus
	switch s := req.GetString("status", "all"); s {
	case "all", "":
	case string(models.StatusCompleted), string(models.StatusAbandoned):
		status = models.SessionStatus(s)
	default:
		return mcp.NewToolResultError("status must be all, completed or abandoned"), nil
	}

	view, err := h.ds.History(ctx, UserIDFromContext(ctx), status)
	if err != nil {
		h.log.Error("mcp get_history", "error", err)
		return mcp.NewToolResultError("query failed: " + describe(err)), nil
	}
	return jsonResult(view)
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.ds.ExerciseNames(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + describe(err)), nil
	}
	if names == nil {
		names = []string{}
	}
	return jsonResult(names)
}

func (h *handlers) getExerciseProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}

	progress, err := h.ds.ExerciseProgress(ctx, UserIDFromContext(ctx), name)
	if err != nil {
		h.log.Error("mcp get_exercise_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + describe(err)), nil
	}
	return jsonResult(progress)
}

func (h *handlers) startSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("day_id")
	if err != nil {
		return mcp.NewToolResultError("day_id is required"), nil
	}
	dayID, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("day_id must be a UUID"), nil
	}

	w, err := h.ds.StartSession(ctx, UserIDFromContext(ctx), api.StartRequest{
		DayID:          dayID,
		AbandonCurrent: req.GetBool("abandon_current", false),
	})
	if err != nil {
		h.log.Error("mcp start_session", "error", err)
		return mcp.NewToolResultError("start failed: " + describe(err)), nil
	}
	return jsonResult(w)
}

func (h *handlers) logSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("exercise_log_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_log_id is required"), nil
	}
	logID, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("exercise_log_id must be a UUID"), nil
	}
	setNumber, err := req.RequireInt("set_number")
	if err != nil || setNumber < 1 {
		return mcp.NewToolResultError("set_number must be a positive integer"), nil
	}

	status := models.SetStatus(req.GetString("status", string(models.SetCompleted)))
	switch status {
	case models.SetCompleted, models.SetFailed, models.SetSkipped:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", status)), nil
	}

	w, err := h.ds.LogSet(ctx, UserIDFromContext(ctx), api.LogSetRequest{
		ExerciseLogID: logID,
		SetNumber:     setNumber,
		Weight:        req.GetFloat("weight", 0),
		Reps:          req.GetInt("reps", 0),
		Status:        status,
	})
	if err != nil {
		h.log.Error("mcp log_set", "error", err)
		return mcp.NewToolResultError("log failed: " + describe(err)), nil
	}
	return jsonResult(w)
}

func (h *handlers) setNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := h.ds.SetNotes(ctx, UserIDFromContext(ctx), req.GetString("notes", ""))
	if err != nil {
		h.log.Error("mcp set_session_notes", "error", err)
		return mcp.NewToolResultError("update failed: " + describe(err)), nil
	}
	return jsonResult(w)
}

func (h *handlers) completeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := h.ds.CompleteSession(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp complete_session", "error", err)
		return mcp.NewToolResultError("complete failed: " + describe(err)), nil
	}
	return jsonResult(w)
}

func (h *handlers) abandonSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := h.ds.AbandonSession(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp abandon_session", "error", err)
		return mcp.NewToolResultError("abandon failed: " + describe(err)), nil
	}
	return jsonResult(w)
}
