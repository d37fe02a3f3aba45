package server

import (
	"net/http"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/nutrition"
)

func (s *Server) handleNutritionChat(w http.ResponseWriter, r *http.Request) {
	if s.nutrition == nil {
		s.writeError(w, r, nutrition.ErrNotConfigured)
		return
	}
	var req api.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := models.Validate(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	reply, err := s.nutrition.Chat(r.Context(), req.History, req.Message)
	if err != nil {
		// The chat surface shows failures as an assistant turn.
		writeJSON(w, statusFor(err), nutrition.Reply{
			Message: "Sorry, I could not analyse that right now. Please try again.",
			Action:  nutrition.ActionAskDetails,
		})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleNutritionAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.nutrition == nil {
		s.writeError(w, r, nutrition.ErrNotConfigured)
		return
	}
	var req api.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := models.Validate(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.nutrition.AnalyzeText(r.Context(), req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
