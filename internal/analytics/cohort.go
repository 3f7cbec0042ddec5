package analytics

import (
	"sort"
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

// CohortCell is the retention of one cohort at a month offset.
type CohortCell struct {
	Offset          int
	RetainedCount   int
	RetainedPercent float64
}

// CohortRow is one join-month cohort with its retention cells in offset order.
type CohortRow struct {
	CohortMonth time.Time
	Size        int
	Cells       []CohortCell
}

// BuildCohorts groups members by join month and measures how many are still
// members at each later month. Offsets starting after today are not emitted.
func BuildCohorts(members []domain.Member, now time.Time, maxMonths int) []CohortRow {
	if maxMonths <= 0 {
		maxMonths = DefaultCohortMaxMonths
	}
	today := dateOf(now)

	cohorts := map[time.Time][]domain.Member{}
	for _, m := range members {
		if m.JoinedAt == nil {
			continue
		}
		key := monthStart(*m.JoinedAt)
		cohorts[key] = append(cohorts[key], m)
	}

	keys := make([]time.Time, 0, len(cohorts))
	for k := range cohorts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	rows := make([]CohortRow, 0, len(keys))
	for _, start := range keys {
		group := cohorts[start]
		size := len(group)
		if size == 0 {
			continue
		}

		row := CohortRow{CohortMonth: start, Size: size}
		for n := 0; n < maxMonths; n++ {
			periodStart := start.AddDate(0, n, 0)
			if periodStart.After(today) {
				break
			}
			if n == 0 {
				row.Cells = append(row.Cells, CohortCell{Offset: 0, RetainedCount: size, RetainedPercent: 100})
				continue
			}
			periodEnd := start.AddDate(0, n+1, 0)
			retained := 0
			for _, m := range group {
				if m.JoinedAt.After(periodStart) {
					continue
				}
				if m.ExitedAt == nil || !m.ExitedAt.Before(periodEnd) {
					retained++
				}
			}
			row.Cells = append(row.Cells, CohortCell{
				Offset:          n,
				RetainedCount:   retained,
				RetainedPercent: percentOf(retained, size),
			})
		}
		if len(row.Cells) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
