package store

import (
	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/calc"
	"github.com/claude/wotracker/internal/models"
)

// State is everything the store holds for one user. Sessions holds finished
// sessions only, newest first; the in-progress one lives in ActiveSession.
type State struct {
	UserID        int              `json:"user_id"`
	Plans         []models.Plan    `json:"plans"`
	Sessions      []models.Session `json:"sessions"`
	ActivePlanID  uuid.UUID        `json:"active_plan_id"`
	ActiveSession *models.Session  `json:"active_session"`
	Settings      models.Settings  `json:"settings"`
	Loading       bool             `json:"loading"`
	Loaded        bool             `json:"loaded"`
}

func (s State) clone() State {
	out := s
	out.Plans = make([]models.Plan, len(s.Plans))
	for i, p := range s.Plans {
		out.Plans[i] = p.Clone()
	}
	out.Sessions = make([]models.Session, len(s.Sessions))
	for i, sess := range s.Sessions {
		out.Sessions[i] = sess.Clone()
	}
	if s.ActiveSession != nil {
		a := s.ActiveSession.Clone()
		out.ActiveSession = &a
	}
	return out
}

func (s State) planIndex(id uuid.UUID) int {
	for i, p := range s.Plans {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s State) sessionIndex(id uuid.UUID) int {
	for i, sess := range s.Sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// Action is a state transition applied by Reduce.
type Action interface {
	action()
}

type (
	// DataLoaded replaces the state wholesale after a Load.
	DataLoaded struct {
		UserID        int
		Plans         []models.Plan
		Sessions      []models.Session
		ActivePlanID  uuid.UUID
		ActiveSession *models.Session
		Settings      models.Settings
	}
	// DataReset drops all state.
	DataReset struct{}
	// LoadingSet toggles the loading flag.
	LoadingSet struct{ Loading bool }

	PlanAdded     struct{ Plan models.Plan }
	PlanUpdated   struct{ Plan models.Plan }
	PlanDeleted   struct{ ID uuid.UUID }
	ActivePlanSet struct{ ID uuid.UUID }

	// SessionStarted installs a new active session.
	SessionStarted struct{ Session models.Session }
	// SessionUpdated replaces the active session.
	SessionUpdated struct{ Session models.Session }
	// SessionFinished moves the active session to the front of history.
	SessionFinished struct{ Session models.Session }
	// HistorySessionUpdated replaces a finished session in place.
	HistorySessionUpdated struct{ Session models.Session }
	// SessionsImported merges finished sessions into history.
	SessionsImported struct{ Sessions []models.Session }

	SettingsUpdated struct{ Settings models.Settings }
)

func (DataLoaded) action()            {}
func (DataReset) action()             {}
func (LoadingSet) action()            {}
func (PlanAdded) action()             {}
func (PlanUpdated) action()           {}
func (PlanDeleted) action()           {}
func (ActivePlanSet) action()         {}
func (SessionStarted) action()        {}
func (SessionUpdated) action()        {}
func (SessionFinished) action()       {}
func (HistorySessionUpdated) action() {}
func (SessionsImported) action()      {}
func (SettingsUpdated) action()       {}

// Reduce returns the state after a. It never modifies s; slices are copied
// before they change.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case DataLoaded:
		return State{
			UserID:        a.UserID,
			Plans:         withActiveFlag(a.Plans, a.ActivePlanID),
			Sessions:      calc.SortNewestFirst(a.Sessions),
			ActivePlanID:  a.ActivePlanID,
			ActiveSession: a.ActiveSession,
			Settings:      a.Settings,
			Loaded:        true,
		}

	case DataReset:
		return State{Settings: models.DefaultSettings()}

	case LoadingSet:
		s.Loading = a.Loading

	case PlanAdded:
		p := a.Plan
		p.IsActive = p.ID == s.ActivePlanID
		s.Plans = append([]models.Plan{p}, s.Plans...)

	case PlanUpdated:
		if i := s.planIndex(a.Plan.ID); i >= 0 {
			plans := append([]models.Plan(nil), s.Plans...)
			p := a.Plan
			p.IsActive = p.ID == s.ActivePlanID
			plans[i] = p
			s.Plans = plans
		}

	case PlanDeleted:
		plans := make([]models.Plan, 0, len(s.Plans))
		for _, p := range s.Plans {
			if p.ID != a.ID {
				plans = append(plans, p)
			}
		}
		s.Plans = plans
		if s.ActivePlanID == a.ID {
			s.ActivePlanID = uuid.Nil
		}

	case ActivePlanSet:
		s.ActivePlanID = a.ID
		s.Plans = withActiveFlag(s.Plans, a.ID)

	case SessionStarted:
		sess := a.Session
		s.ActiveSession = &sess

	case SessionUpdated:
		sess := a.Session
		s.ActiveSession = &sess

	case SessionFinished:
		s.Sessions = append([]models.Session{a.Session}, s.Sessions...)
		if s.ActiveSession != nil && s.ActiveSession.ID == a.Session.ID {
			s.ActiveSession = nil
		}

	case HistorySessionUpdated:
		if i := s.sessionIndex(a.Session.ID); i >= 0 {
			sessions := append([]models.Session(nil), s.Sessions...)
			sessions[i] = a.Session
			s.Sessions = sessions
		}

	case SessionsImported:
		merged := append(append([]models.Session(nil), s.Sessions...), a.Sessions...)
		s.Sessions = calc.SortNewestFirst(merged)

	case SettingsUpdated:
		s.Settings = a.Settings
	}
	return s
}

func withActiveFlag(plans []models.Plan, active uuid.UUID) []models.Plan {
	out := make([]models.Plan, len(plans))
	for i, p := range plans {
		p.IsActive = active != uuid.Nil && p.ID == active
		out[i] = p
	}
	return out
}
