package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
)

// normalizePlan fills missing IDs, trims names and renumbers days.
func normalizePlan(p *models.Plan) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Name = strings.TrimSpace(p.Name)
	for i := range p.Days {
		normalizeDay(&p.Days[i])
	}
	p.Renumber()
}

func normalizeDay(d *models.Day) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.Exercises == nil {
		d.Exercises = []models.Exercise{}
	}
	for i := range d.Exercises {
		normalizeExercise(&d.Exercises[i])
	}
}

func normalizeExercise(e *models.Exercise) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Name = strings.TrimSpace(e.Name)
	e.RepRange = strings.TrimSpace(e.RepRange)
}

// CreatePlan adds a new plan. Missing IDs are generated.
func (s *Store) CreatePlan(ctx context.Context, p models.Plan) (models.Plan, PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return models.Plan{}, PersistResult{}, err
	}
	defer unlock()

	p = p.Clone()
	normalizePlan(&p)
	if st.planIndex(p.ID) >= 0 {
		return models.Plan{}, PersistResult{}, fmt.Errorf("%w: plan %s already exists", models.ErrInvalid, p.ID)
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	p.IsActive = false
	if err := models.Validate(p); err != nil {
		return models.Plan{}, PersistResult{}, err
	}

	s.apply(PlanAdded{Plan: p})
	return p, s.persistPlan(ctx, st.UserID, p), nil
}

// UpdatePlan replaces an existing plan's name, description and days.
func (s *Store) UpdatePlan(ctx context.Context, p models.Plan) (models.Plan, PersistResult, error) {
	return s.editPlan(ctx, p.ID, func(cur *models.Plan) error {
		cur.Name = p.Name
		cur.Description = p.Description
		cur.Days = p.Clone().Days
		return nil
	})
}

// DeletePlan removes a plan, clearing the active reference when it pointed
// at it. Sessions started from the plan keep their copied names.
func (s *Store) DeletePlan(ctx context.Context, id uuid.UUID) (PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return PersistResult{}, err
	}
	defer unlock()

	if st.planIndex(id) < 0 {
		return PersistResult{}, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	s.apply(PlanDeleted{ID: id})
	return s.persistPlanDelete(ctx, st.UserID, id), nil
}

// SetActivePlan makes id the active plan. uuid.Nil clears it.
func (s *Store) SetActivePlan(ctx context.Context, id uuid.UUID) (PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return PersistResult{}, err
	}
	defer unlock()

	if id != uuid.Nil && st.planIndex(id) < 0 {
		return PersistResult{}, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	s.apply(ActivePlanSet{ID: id})
	return s.persistActivePlan(ctx, st.UserID, id), nil
}

// ActivePlan returns the active plan, if any.
func (s *Store) ActivePlan() (models.Plan, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if i := s.state.planIndex(s.state.ActivePlanID); i >= 0 {
		return s.state.Plans[i].Clone(), true
	}
	return models.Plan{}, false
}

// Plan returns the plan with the given ID.
func (s *Store) Plan(id uuid.UUID) (models.Plan, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if i := s.state.planIndex(id); i >= 0 {
		return s.state.Plans[i].Clone(), true
	}
	return models.Plan{}, false
}

// AddDay appends a day to a plan.
func (s *Store) AddDay(ctx context.Context, planID uuid.UUID, d models.Day) (models.Plan, PersistResult, error) {
	return s.editPlan(ctx, planID, func(p *models.Plan) error {
		d.Exercises = append([]models.Exercise(nil), d.Exercises...)
		p.Days = append(p.Days, d)
		return nil
	})
}

// DayUpdate changes a day. Nil fields are left as they are.
type DayUpdate struct {
	Name      *string           `json:"name"`
	Exercises []models.Exercise `json:"exercises"`
}

// UpdateDay applies u to one day of a plan.
func (s *Store) UpdateDay(ctx context.Context, planID, dayID uuid.UUID, u DayUpdate) (models.Plan, PersistResult, error) {
	return s.editPlan(ctx, planID, func(p *models.Plan) error {
		i := p.DayIndex(dayID)
		if i < 0 {
			return fmt.Errorf("day %s: %w", dayID, ErrNotFound)
		}
		if u.Name != nil {
			p.Days[i].Name = *u.Name
		}
		if u.Exercises != nil {
			p.Days[i].Exercises = append([]models.Exercise(nil), u.Exercises...)
		}
		return nil
	})
}

// DeleteDay removes a day and renumbers the rest.
func (s *Store) DeleteDay(ctx context.Context, planID, dayID uuid.UUID) (models.Plan, PersistResult, error) {
	return s.editPlan(ctx, planID, func(p *models.Plan) error {
		i := p.DayIndex(dayID)
		if i < 0 {
			return fmt.Errorf("day %s: %w", dayID, ErrNotFound)
		}
		p.Days = append(p.Days[:i], p.Days[i+1:]...)
		return nil
	})
}

// AddExercise appends an exercise to a day.
func (s *Store) AddExercise(ctx context.Context, planID, dayID uuid.UUID, e models.Exercise) (models.Plan, PersistResult, error) {
	return s.editDay(ctx, planID, dayID, func(d *models.Day) error {
		d.Exercises = append(d.Exercises, e)
		return nil
	})
}

// UpdateExercise replaces the exercise with e.ID.
func (s *Store) UpdateExercise(ctx context.Context, planID, dayID uuid.UUID, e models.Exercise) (models.Plan, PersistResult, error) {
	return s.editDay(ctx, planID, dayID, func(d *models.Day) error {
		i := exerciseIndex(*d, e.ID)
		if i < 0 {
			return fmt.Errorf("exercise %s: %w", e.ID, ErrNotFound)
		}
		d.Exercises[i] = e
		return nil
	})
}

// DeleteExercise removes an exercise from a day.
func (s *Store) DeleteExercise(ctx context.Context, planID, dayID, exerciseID uuid.UUID) (models.Plan, PersistResult, error) {
	return s.editDay(ctx, planID, dayID, func(d *models.Day) error {
		i := exerciseIndex(*d, exerciseID)
		if i < 0 {
			return fmt.Errorf("exercise %s: %w", exerciseID, ErrNotFound)
		}
		d.Exercises = append(d.Exercises[:i], d.Exercises[i+1:]...)
		return nil
	})
}

// ReorderExercises reorders a day's exercises. order must list every
// exercise ID of the day exactly once.
func (s *Store) ReorderExercises(ctx context.Context, planID, dayID uuid.UUID, order []uuid.UUID) (models.Plan, PersistResult, error) {
	return s.editDay(ctx, planID, dayID, func(d *models.Day) error {
		if len(order) != len(d.Exercises) {
			return fmt.Errorf("%w: order lists %d exercises, day has %d", models.ErrInvalid, len(order), len(d.Exercises))
		}
		byID := make(map[uuid.UUID]models.Exercise, len(d.Exercises))
		for _, e := range d.Exercises {
			byID[e.ID] = e
		}
		reordered := make([]models.Exercise, 0, len(order))
		for _, id := range order {
			e, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: exercise %s listed twice or not in day", models.ErrInvalid, id)
			}
			delete(byID, id)
			reordered = append(reordered, e)
		}
		d.Exercises = reordered
		return nil
	})
}

func exerciseIndex(d models.Day, id uuid.UUID) int {
	for i, e := range d.Exercises {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) editDay(ctx context.Context, planID, dayID uuid.UUID, fn func(*models.Day) error) (models.Plan, PersistResult, error) {
	return s.editPlan(ctx, planID, func(p *models.Plan) error {
		i := p.DayIndex(dayID)
		if i < 0 {
			return fmt.Errorf("day %s: %w", dayID, ErrNotFound)
		}
		return fn(&p.Days[i])
	})
}

// editPlan applies fn to a copy of the plan, validates, then commits.
func (s *Store) editPlan(ctx context.Context, planID uuid.UUID, fn func(*models.Plan) error) (models.Plan, PersistResult, error) {
	st, unlock, err := s.begin()
	if err != nil {
		return models.Plan{}, PersistResult{}, err
	}
	defer unlock()

	i := st.planIndex(planID)
	if i < 0 {
		return models.Plan{}, PersistResult{}, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	p := st.Plans[i].Clone()
	if err := fn(&p); err != nil {
		return models.Plan{}, PersistResult{}, err
	}
	normalizePlan(&p)
	p.ID = planID
	p.UpdatedAt = s.now()
	if err := models.Validate(p); err != nil {
		return models.Plan{}, PersistResult{}, err
	}

	s.apply(PlanUpdated{Plan: p})
	return p, s.persistPlan(ctx, st.UserID, p), nil
}
