package calc

import (
	"math"
	"sort"
	"time"

	"github.com/claude/wotracker/internal/models"
)

// MonthlyGoal is the number of completed workouts the dashboard tracks against.
const MonthlyGoal = 20

// recentLimit is how many sessions the dashboard lists as recent activity.
const recentLimit = 3

// dateKey identifies a calendar day in a particular location.
type dateKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dateKey {
	y, m, d := t.Date()
	return dateKey{y, m, d}
}

// Streak counts consecutive local calendar days, ending today, that hold at
// least one completed session. A missing today does not break the streak;
// any earlier gap ends it. Dates are taken in now's location.
func Streak(sessions []models.Session, now time.Time) int {
	days := make(map[dateKey]struct{})
	for _, s := range sessions {
		if s.Status != models.StatusCompleted || s.CompletedAt == nil {
			continue
		}
		days[keyOf(s.CompletedAt.In(now.Location()))] = struct{}{}
	}

	streak := 0
	for offset := 0; ; offset++ {
		if _, ok := days[keyOf(now.AddDate(0, 0, -offset))]; ok {
			streak++
			continue
		}
		if offset == 0 {
			continue
		}
		return streak
	}
}

// WeekStart is local midnight of the Sunday starting now's week.
func WeekStart(now time.Time) time.Time {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, -int(now.Weekday()))
}

// ThisWeekCount counts sessions whose last activity falls in the current week.
func ThisWeekCount(sessions []models.Session, now time.Time) int {
	start := WeekStart(now)
	n := 0
	for _, s := range sessions {
		if !s.LastActivity().Before(start) {
			n++
		}
	}
	return n
}

// DashboardStats is the summary shown on the dashboard.
type DashboardStats struct {
	TotalWorkouts  int              `json:"total_workouts"`
	Completed      int              `json:"completed"`
	Abandoned      int              `json:"abandoned"`
	ThisWeek       int              `json:"this_week"`
	Streak         int              `json:"streak"`
	GoalCompletion int              `json:"goal_completion"`
	Recent         []models.Session `json:"recent"`
}

// Dashboard derives dashboard stats from the session history.
func Dashboard(sessions []models.Session, now time.Time) DashboardStats {
	stats := DashboardStats{
		TotalWorkouts: len(sessions),
		ThisWeek:      ThisWeekCount(sessions, now),
		Streak:        Streak(sessions, now),
	}
	for _, s := range sessions {
		switch s.Status {
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusAbandoned:
			stats.Abandoned++
		}
	}
	stats.GoalCompletion = min(100, int(math.Round(float64(stats.Completed)/MonthlyGoal*100)))

	recent := SortNewestFirst(sessions)
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	stats.Recent = recent
	return stats
}

// SortNewestFirst returns a copy of sessions ordered by last activity, newest first.
func SortNewestFirst(sessions []models.Session) []models.Session {
	out := append([]models.Session(nil), sessions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity().After(out[j].LastActivity())
	})
	return out
}

// FilterByStatus keeps sessions with the given status. An empty status keeps all.
func FilterByStatus(sessions []models.Session, status models.SessionStatus) []models.Session {
	if status == "" {
		return append([]models.Session(nil), sessions...)
	}
	var out []models.Session
	for _, s := range sessions {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// ExerciseStats summarises one exercise's history.
type ExerciseStats struct {
	TotalSessions   int          `json:"total_sessions"`
	PersonalBest    *Record      `json:"personal_best"`
	LastPerformance *Performance `json:"last_performance"`
	Trend           Trend        `json:"trend"`
}

// StatsFor computes ExerciseStats over a newest-first history.
func StatsFor(history []HistoryEntry) ExerciseStats {
	if len(history) == 0 {
		return ExerciseStats{Trend: TrendStable}
	}
	return ExerciseStats{
		TotalSessions:   len(history),
		PersonalBest:    PersonalBest(history),
		LastPerformance: LastPerformance(history),
		Trend:           TrendOf(history, DefaultTrendLimit),
	}
}

// ExerciseProgress is the exercise progress view: stats plus the history
// they were computed from.
type ExerciseProgress struct {
	Name            string         `json:"name"`
	Stats           ExerciseStats  `json:"stats"`
	SuggestedWeight float64        `json:"suggested_weight"`
	History         []HistoryEntry `json:"history"`
}
