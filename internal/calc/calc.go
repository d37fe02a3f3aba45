// Package calc holds the pure progress calculations over loaded history.
package calc

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/claude/wotracker/internal/models"
)

// DefaultTrendLimit is how many history entries TrendOf looks at when limit is unset.
const DefaultTrendLimit = 5

// trendThreshold is the relative change that separates up/down from stable.
const trendThreshold = 0.05

// Trend is the direction of an exercise's recent max weights.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// HistoryEntry is one completed session's sets for a single exercise.
type HistoryEntry struct {
	Date    time.Time       `json:"date"`
	DayName string          `json:"day_name"`
	Sets    []models.SetLog `json:"sets"`
}

// Record is a personal best set.
type Record struct {
	Weight float64   `json:"weight"`
	Reps   int       `json:"reps"`
	Date   time.Time `json:"date"`
}

// Performance summarises the most recent history entry.
type Performance struct {
	Weight float64         `json:"weight"`
	Sets   []models.SetLog `json:"sets"`
	Date   time.Time       `json:"date"`
}

// Volume sums weight × reps over non-skipped sets.
func Volume(sets []models.SetLog) float64 {
	var total float64
	for _, s := range sets {
		if s.Status == models.SetSkipped {
			continue
		}
		total += s.Weight * float64(s.Reps)
	}
	return total
}

// CompletedSets counts sets that were not skipped.
func CompletedSets(sets []models.SetLog) int {
	n := 0
	for _, s := range sets {
		if s.Status != models.SetSkipped {
			n++
		}
	}
	return n
}

// TotalReps sums reps over non-skipped sets.
func TotalReps(sets []models.SetLog) int {
	n := 0
	for _, s := range sets {
		if s.Status != models.SetSkipped {
			n += s.Reps
		}
	}
	return n
}

// MaxWeight is the heaviest non-skipped set with a positive weight, or 0.
func MaxWeight(sets []models.SetLog) float64 {
	var max float64
	for _, s := range sets {
		if s.Status != models.SetSkipped && s.Weight > max {
			max = s.Weight
		}
	}
	return max
}

// PersonalBest returns the single heaviest set across history. Ties keep the
// first occurrence. Returns nil when no set has a positive weight.
func PersonalBest(history []HistoryEntry) *Record {
	var best Record
	for _, entry := range history {
		for _, s := range entry.Sets {
			if s.Status != models.SetSkipped && s.Weight > best.Weight {
				best = Record{Weight: s.Weight, Reps: s.Reps, Date: entry.Date}
			}
		}
	}
	if best.Weight == 0 {
		return nil
	}
	return &best
}

// LastPerformance describes history[0], which callers keep newest first.
func LastPerformance(history []HistoryEntry) *Performance {
	if len(history) == 0 {
		return nil
	}
	last := history[0]
	return &Performance{
		Weight: MaxWeight(last.Sets),
		Sets:   last.Sets,
		Date:   last.Date,
	}
}

// TrendOf classifies the newest limit entries (newest first). The entries are
// split into a recent half of floor(n/2) and an older remainder, and the
// averages of their max weights are compared against a 5% band around the
// older average. An empty half averages to 0.
func TrendOf(history []HistoryEntry, limit int) Trend {
	if len(history) < 2 {
		return TrendStable
	}
	if limit <= 0 {
		limit = DefaultTrendLimit
	}
	if limit < len(history) {
		history = history[:limit]
	}

	weights := make([]float64, len(history))
	for i, h := range history {
		weights[i] = MaxWeight(h.Sets)
	}

	mid := len(weights) / 2
	recentAvg := average(weights[:mid])
	olderAvg := average(weights[mid:])

	diff := recentAvg - olderAvg
	threshold := olderAvg * trendThreshold
	switch {
	case diff > threshold:
		return TrendUp
	case diff < -threshold:
		return TrendDown
	default:
		return TrendStable
	}
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// SessionCompletion is logged non-skipped sets over planned sets, as a
// rounded percentage. Sessions with no planned sets are 0.
func SessionCompletion(s models.Session) int {
	planned, done := 0, 0
	for _, l := range s.ExerciseLogs {
		planned += l.PlannedSets
		done += CompletedSets(l.Sets)
	}
	if planned == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(planned) * 100))
}

// IsPersonalRecord reports whether weight beats the current personal best.
// With no best on record any positive weight counts.
func IsPersonalRecord(weight float64, history []HistoryEntry) bool {
	if pb := PersonalBest(history); pb != nil {
		return weight > pb.Weight
	}
	return weight > 0
}

// SuggestedWeight prefers the planned target weight, then the last
// performance's max weight, then 0.
func SuggestedWeight(last *Performance, target *float64) float64 {
	if target != nil && *target > 0 {
		return *target
	}
	if last != nil && last.Weight > 0 {
		return last.Weight
	}
	return 0
}

// ExerciseHistory extracts the sets logged for an exercise across completed
// sessions, matching names case-insensitively, newest first.
func ExerciseHistory(sessions []models.Session, exerciseName string) []HistoryEntry {
	var history []HistoryEntry
	for _, s := range sessions {
		if s.Status != models.StatusCompleted {
			continue
		}
		for _, l := range s.ExerciseLogs {
			if !strings.EqualFold(l.ExerciseName, exerciseName) {
				continue
			}
			history = append(history, HistoryEntry{
				Date:    s.LastActivity(),
				DayName: s.DayName,
				Sets:    l.Sets,
			})
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.After(history[j].Date)
	})
	return history
}

// ExerciseNames lists every distinct exercise name found in plans and in
// session logs, sorted.
func ExerciseNames(plans []models.Plan, sessions []models.Session) []string {
	seen := make(map[string]struct{})
	for _, p := range plans {
		for _, d := range p.Days {
			for _, e := range d.Exercises {
				if e.Name != "" {
					seen[e.Name] = struct{}{}
				}
			}
		}
	}
	for _, s := range sessions {
		for _, l := range s.ExerciseLogs {
			if l.ExerciseName != "" {
				seen[l.ExerciseName] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
