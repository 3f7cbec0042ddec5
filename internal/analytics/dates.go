package analytics

import (
	"math"
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

const (
	DefaultWindowDays      = 30
	DefaultCohortMaxMonths = 6

	daysPerMonth = 30.44
)

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func windowStart(today time.Time, windowDays int) time.Time {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return today.AddDate(0, 0, -windowDays)
}

// activeAt reports whether m was a member on day b: joined on or before b and
// not exited on or before b.
func activeAt(m domain.Member, b time.Time) bool {
	if m.JoinedAt == nil || m.JoinedAt.After(b) {
		return false
	}
	return m.ExitedAt == nil || m.ExitedAt.After(b)
}

// within reports whether t is in the half-open interval (from, to].
func within(t *time.Time, from, to time.Time) bool {
	if t == nil {
		return false
	}
	return t.After(from) && !t.After(to)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func percentOf(num, den int) float64 {
	return round2(ratio(num, den) * 100)
}
