package server

import (
	"net/http"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/store"
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	plans := us.State().Plans
	if plans == nil {
		plans = []models.Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, found := us.Plan(id)
	if !found {
		s.writeError(w, r, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	var p models.Plan
	if !decodeJSON(w, r, &p) {
		return
	}
	created, res, err := us.CreatePlan(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusCreated, created, res)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var p models.Plan
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = id
	updated, res, err := us.UpdatePlan(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, updated, res)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	res, err := us.DeletePlan(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusNoContent, nil, res)
}

func (s *Server) handleActivatePlan(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	res, err := us.SetActivePlan(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, _ := us.Plan(id)
	s.writeResult(w, r, http.StatusOK, p, res)
}

func (s *Server) handleAddDay(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var d models.Day
	if !decodeJSON(w, r, &d) {
		return
	}
	p, res, err := us.AddDay(r.Context(), planID, d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusCreated, p, res)
}

func (s *Server) handleUpdateDay(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dayID, ok := pathUUID(w, r, "dayID")
	if !ok {
		return
	}
	var u store.DayUpdate
	if !decodeJSON(w, r, &u) {
		return
	}
	p, res, err := us.UpdateDay(r.Context(), planID, dayID, u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, p, res)
}

func (s *Server) handleDeleteDay(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dayID, ok := pathUUID(w, r, "dayID")
	if !ok {
		return
	}
	p, res, err := us.DeleteDay(r.Context(), planID, dayID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, p, res)
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dayID, ok := pathUUID(w, r, "dayID")
	if !ok {
		return
	}
	var e models.Exercise
	if !decodeJSON(w, r, &e) {
		return
	}
	p, res, err := us.AddExercise(r.Context(), planID, dayID, e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusCreated, p, res)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dayID, ok := pathUUID(w, r, "dayID")
	if !ok {
		return
	}
	exID, ok := pathUUID(w, r, "exID")
	if !ok {
		return
	}
	var e models.Exercise
	if !decodeJSON(w, r, &e) {
		return
	}
	e.ID = exID
	p, res, err := us.UpdateExercise(r.Context(), planID, dayID, e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, p, res)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dayID, ok := pathUUID(w, r, "dayID")
	if !ok {
		return
	}
	exID, ok := pathUUID(w, r, "exID")
	if !ok {
		return
	}
	p, res, err := us.DeleteExercise(r.Context(), planID, dayID, exID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, p, res)
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	us, ok := s.userStore(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dayID, ok := pathUUID(w, r, "dayID")
	if !ok {
		return
	}
	var req api.ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, res, err := us.ReorderExercises(r.Context(), planID, dayID, req.Order)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, http.StatusOK, p, res)
}
