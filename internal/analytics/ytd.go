package analytics

import (
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

// TotalRevenueYTD is the recurring revenue earned in now's calendar year.
//
// Annual plans count their full price once when they overlapped the year.
// Other plans count MRR for every calendar month they were active this year:
//
//	joined before, still active  -> current month number
//	joined before, exited        -> exit month number
//	joined and exited this year  -> exit month - join month + 1
//	joined this year, active     -> current month - join month + 1
//
// An exit dated in a later year counts as still active.
func TotalRevenueYTD(members []domain.Member, now time.Time) float64 {
	today := dateOf(now)
	year := today.Year()
	firstOfYear := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	var total float64
	for _, m := range members {
		if m.JoinedAt == nil {
			continue
		}
		joined := *m.JoinedAt

		if m.PlanType == domain.PlanAnnual {
			if !joined.After(today) && (m.ExitedAt == nil || !m.ExitedAt.Before(firstOfYear)) {
				total += float64(m.Price)
			}
			continue
		}

		if m.MRR == 0 {
			continue
		}
		if m.ExitedAt != nil && m.ExitedAt.Year() < year {
			continue
		}
		if joined.Year() > year {
			continue
		}

		total += m.MRR * float64(monthsActiveThisYear(joined, m.ExitedAt, today))
	}
	return total
}

func monthsActiveThisYear(joined time.Time, exited *time.Time, today time.Time) int {
	year := today.Year()
	joinedBefore := joined.Year() < year
	exitedThisYear := exited != nil && exited.Year() == year

	var months int
	switch {
	case joinedBefore && !exitedThisYear:
		months = int(today.Month())
	case joinedBefore && exitedThisYear:
		months = int(exited.Month())
	case exitedThisYear:
		months = int(exited.Month()) - int(joined.Month()) + 1
	default:
		months = int(today.Month()) - int(joined.Month()) + 1
	}
	if months < 0 {
		return 0
	}
	return months
}
