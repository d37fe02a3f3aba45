// Package format turns raw workout values into display strings.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/claude/wotracker/internal/models"
)

// Placeholder is shown in place of a missing value.
const Placeholder = "—"

// Date formats t as "Jan 2", adding the year when t is more than a year
// before now. With relative set, dates within the last week render as
// "Today", "Yesterday" or "N days ago".
func Date(t, now time.Time, relative bool) string {
	diffDays := int(math.Floor(now.Sub(t).Hours() / 24))

	if relative && diffDays >= 0 {
		switch {
		case diffDays == 0:
			return "Today"
		case diffDays == 1:
			return "Yesterday"
		case diffDays < 7:
			return fmt.Sprintf("%d days ago", diffDays)
		}
	}

	if diffDays > 365 {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("Jan 2")
}

// Time formats t as a 12-hour clock time ("03:04 PM").
func Time(t time.Time) string {
	return t.Format("03:04 PM")
}

// Duration renders d as "1h 5m", "5m 30s" or "30s", truncating each unit.
func Duration(d time.Duration) string {
	seconds := int(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

// Weight renders a weight with its unit, or Placeholder for zero.
func Weight(weight float64, unit models.WeightUnit) string {
	if weight == 0 {
		return Placeholder
	}
	if unit == "" {
		unit = models.UnitKg
	}
	return strconv.FormatFloat(weight, 'f', -1, 64) + string(unit)
}

// SetsReps renders "3 × 10".
func SetsReps(sets int, reps string) string {
	return fmt.Sprintf("%d × %s", sets, reps)
}

// ExerciseTarget renders an exercise's planned target, e.g. "3 × 8-12 @ 60kg".
func ExerciseTarget(e models.Exercise, unit models.WeightUnit) string {
	target := SetsReps(e.PlannedSets, e.RepTarget())
	if e.TargetWeight != nil && *e.TargetWeight > 0 {
		target += " @ " + Weight(*e.TargetWeight, unit)
	}
	return target
}

// SessionDuration renders how long a session ran. Sessions still in progress
// are measured up to now.
func SessionDuration(s models.Session, now time.Time) string {
	if s.StartedAt.IsZero() {
		return Placeholder
	}
	end := now
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	return Duration(end.Sub(s.StartedAt))
}

// Timer renders a countdown as "m:ss".
func Timer(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Pluralize picks singular for a count of one. An empty plural defaults to
// singular + "s".
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	if plural == "" {
		return singular + "s"
	}
	return plural
}

// Ordinal renders 1 as "1st", 2 as "2nd", 11 as "11th" and so on.
func Ordinal(n int) string {
	suffix := "th"
	switch v := n % 100; {
	case v >= 11 && v <= 13:
	case v%10 == 1:
		suffix = "st"
	case v%10 == 2:
		suffix = "nd"
	case v%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}
