package store

import (
	"strings"

	"github.com/claude/wotracker/internal/calc"
	"github.com/claude/wotracker/internal/format"
	"github.com/claude/wotracker/internal/models"
)

// allSessions returns history plus the active session, if any.
func allSessions(st State) []models.Session {
	out := make([]models.Session, 0, len(st.Sessions)+1)
	if st.ActiveSession != nil {
		out = append(out, *st.ActiveSession)
	}
	return append(out, st.Sessions...)
}

// Dashboard computes the dashboard numbers as of now.
func (s *Store) Dashboard() calc.DashboardStats {
	st := s.State()
	return calc.Dashboard(allSessions(st), s.now())
}

// HistoryGroup is a run of sessions sharing a display date.
type HistoryGroup struct {
	Label    string           `json:"label"`
	Sessions []models.Session `json:"sessions"`
}

// HistoryView is the finished-session listing.
type HistoryView struct {
	Groups    []HistoryGroup `json:"groups"`
	Completed int            `json:"completed"`
	Abandoned int            `json:"abandoned"`
}

// History lists finished sessions newest first, grouped by display date.
// An empty status lists both completed and abandoned sessions. The counts
// always cover the whole history.
func (s *Store) History(status models.SessionStatus) HistoryView {
	st := s.State()
	now := s.now()

	view := HistoryView{Groups: []HistoryGroup{}}
	for _, sess := range st.Sessions {
		switch sess.Status {
		case models.StatusCompleted:
			view.Completed++
		case models.StatusAbandoned:
			view.Abandoned++
		}
	}

	for _, sess := range calc.SortNewestFirst(calc.FilterByStatus(st.Sessions, status)) {
		label := format.Date(sess.LastActivity().In(now.Location()), now, true)
		if n := len(view.Groups); n > 0 && view.Groups[n-1].Label == label {
			view.Groups[n-1].Sessions = append(view.Groups[n-1].Sessions, sess)
			continue
		}
		view.Groups = append(view.Groups, HistoryGroup{Label: label, Sessions: []models.Session{sess}})
	}
	return view
}

// ExerciseNames lists every exercise name in plans and sessions.
func (s *Store) ExerciseNames() []string {
	st := s.State()
	return calc.ExerciseNames(st.Plans, allSessions(st))
}

// ExerciseProgress returns stats and history for one exercise. The suggested
// weight prefers the active plan's target for an exercise of that name.
func (s *Store) ExerciseProgress(name string) calc.ExerciseProgress {
	st := s.State()
	history := calc.ExerciseHistory(st.Sessions, name)
	stats := calc.StatsFor(history)
	if history == nil {
		history = []calc.HistoryEntry{}
	}
	return calc.ExerciseProgress{
		Name:            name,
		Stats:           stats,
		SuggestedWeight: calc.SuggestedWeight(stats.LastPerformance, activeTarget(st, name)),
		History:         history,
	}
}

func activeTarget(st State, name string) *float64 {
	i := st.planIndex(st.ActivePlanID)
	if i < 0 {
		return nil
	}
	for _, d := range st.Plans[i].Days {
		for _, e := range d.Exercises {
			if strings.EqualFold(e.Name, name) && e.TargetWeight != nil {
				return e.TargetWeight
			}
		}
	}
	return nil
}
