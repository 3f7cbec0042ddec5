package analytics

import (
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

// MonthlyRow is one calendar month of the time series. Rates are decimals.
type MonthlyRow struct {
	Month           time.Time
	MRR             float64
	ARPU            float64
	LTV             *float64
	NewMembers      int
	ChurnedMembers  int
	ActiveStart     int
	ActiveEnd       int
	ChurnRate       float64
	AcquisitionRate float64
	PriceSum        int64
}

// BuildMonthlySeries walks every calendar month from the first join up to the
// later of the last exit and today. Members without a join date are ignored.
func BuildMonthlySeries(members []domain.Member, now time.Time) []MonthlyRow {
	today := dateOf(now)

	dated := make([]domain.Member, 0, len(members))
	var first, last time.Time
	for _, m := range members {
		if m.JoinedAt == nil {
			continue
		}
		if len(dated) == 0 || m.JoinedAt.Before(first) {
			first = *m.JoinedAt
		}
		if m.ExitedAt != nil && m.ExitedAt.After(last) {
			last = *m.ExitedAt
		}
		dated = append(dated, m)
	}
	if len(dated) == 0 {
		return nil
	}
	if today.After(last) {
		last = today
	}

	var rows []MonthlyRow
	end := monthStart(last)
	for start := monthStart(first); !start.After(end); start = start.AddDate(0, 1, 0) {
		rows = append(rows, monthlyRow(dated, start))
	}
	return rows
}

func monthlyRow(members []domain.Member, start time.Time) MonthlyRow {
	next := start.AddDate(0, 1, 0)
	end := next.AddDate(0, 0, -1)

	row := MonthlyRow{Month: start}
	payingAtStart := 0
	for _, m := range members {
		if activeAt(m, start) {
			row.ActiveStart++
			if m.MRR > 0 {
				payingAtStart++
			}
		}
		if activeAt(m, end) {
			row.ActiveEnd++
			row.MRR += m.MRR
			row.PriceSum += m.Price
		}
		if !m.JoinedAt.Before(start) && m.JoinedAt.Before(next) {
			row.NewMembers++
		}
		if m.ExitedAt != nil && !m.ExitedAt.Before(start) && m.ExitedAt.Before(next) {
			row.ChurnedMembers++
		}
	}

	row.ChurnRate = ratio(row.ChurnedMembers, row.ActiveStart)
	row.AcquisitionRate = ratio(row.NewMembers, row.ActiveStart)
	if payingAtStart > 0 {
		row.ARPU = row.MRR / float64(payingAtStart)
	}
	if row.ChurnRate > 0 {
		ltv := row.ARPU / row.ChurnRate
		row.LTV = &ltv
	}
	return row
}
