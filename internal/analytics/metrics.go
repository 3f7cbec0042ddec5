package analytics

import (
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

// LTV is a lifetime value. Infinite is set when there was no churn to divide by.
type LTV struct {
	Value    float64
	Infinite bool
}

// LifetimeValue divides arpu by a churn rate expressed as a decimal.
func LifetimeValue(arpu, churnDecimal float64) LTV {
	if churnDecimal <= 0 {
		return LTV{Infinite: true}
	}
	return LTV{Value: arpu / churnDecimal}
}

// MRR sums the monthly revenue of active members.
func MRR(members []domain.Member) float64 {
	var total float64
	for _, m := range members {
		if m.IsActive {
			total += m.MRR
		}
	}
	return total
}

// MRRNoAnnual is MRR without annual plans.
func MRRNoAnnual(members []domain.Member) float64 {
	var total float64
	for _, m := range members {
		if m.IsActive && m.PlanType != domain.PlanAnnual {
			total += m.MRR
		}
	}
	return total
}

// ChurnRate returns the percentage of members active at the start of the
// window that exited inside (now-window, now]. With noAnnual both sets skip
// annual plans.
func ChurnRate(members []domain.Member, now time.Time, windowDays int, noAnnual bool) float64 {
	return ChurnRateDecimal(members, now, windowDays, noAnnual) * 100
}

// ChurnRateDecimal is ChurnRate as a value in [0,1].
func ChurnRateDecimal(members []domain.Member, now time.Time, windowDays int, noAnnual bool) float64 {
	today := dateOf(now)
	start := windowStart(today, windowDays)

	var starting, churned int
	for _, m := range members {
		if noAnnual && m.PlanType == domain.PlanAnnual {
			continue
		}
		if activeAt(m, start) {
			starting++
		}
		if within(m.ExitedAt, start, today) {
			churned++
		}
	}
	rate := ratio(churned, starting)
	if rate > 1 {
		rate = 1
	}
	return rate
}

// PopulationAcquisitionRate compares the current population against the
// members that had joined by the start of the window.
func PopulationAcquisitionRate(members []domain.Member, populationNow int, now time.Time, windowDays int) float64 {
	start := windowStart(dateOf(now), windowDays)
	var joinedBy int
	for _, m := range members {
		if m.JoinedAt != nil && !m.JoinedAt.After(start) {
			joinedBy++
		}
	}
	if joinedBy == 0 {
		return 0
	}
	return float64(populationNow-joinedBy) / float64(joinedBy)
}

// NewJoinAcquisitionRate divides joins inside the window by the members
// active at its start.
func NewJoinAcquisitionRate(members []domain.Member, now time.Time, windowDays int) float64 {
	today := dateOf(now)
	start := windowStart(today, windowDays)
	return ratio(NewMembers(members, start, today), ActiveCount(members, start))
}

// GrowthRate is the relative change in active members across the window.
func GrowthRate(members []domain.Member, now time.Time, windowDays int) float64 {
	today := dateOf(now)
	start := windowStart(today, windowDays)
	before := ActiveCount(members, start)
	if before == 0 {
		return 0
	}
	return float64(ActiveCount(members, today)-before) / float64(before)
}

// RetainedRevenue sums the MRR of members active both at the window start and now.
func RetainedRevenue(members []domain.Member, now time.Time, windowDays int) float64 {
	today := dateOf(now)
	start := windowStart(today, windowDays)
	var total float64
	for _, m := range members {
		if activeAt(m, start) && activeAt(m, today) {
			total += m.MRR
		}
	}
	return total
}

// ARPU is MRR over active members that pay anything.
func ARPU(members []domain.Member) float64 {
	var paying int
	for _, m := range members {
		if m.IsActive && (m.Price > 0 || m.MRR > 0) {
			paying++
		}
	}
	if paying == 0 {
		return 0
	}
	return MRR(members) / float64(paying)
}

// ARPUNoAnnual is MRRNoAnnual over active, paying, non-annual members.
func ARPUNoAnnual(members []domain.Member) float64 {
	var paying int
	for _, m := range members {
		if m.IsActive && m.Price > 0 && m.PlanType != domain.PlanAnnual {
			paying++
		}
	}
	if paying == 0 {
		return 0
	}
	return MRRNoAnnual(members) / float64(paying)
}

// AverageLifespanNoAnnual is the mean lifespan in days of exited, non-annual
// members with a strictly positive lifespan.
func AverageLifespanNoAnnual(members []domain.Member) float64 {
	var total, n int
	for _, m := range members {
		if m.IsActive || m.PlanType == domain.PlanAnnual {
			continue
		}
		if m.JoinedAt == nil || m.ExitedAt == nil {
			continue
		}
		days := int(m.ExitedAt.Sub(*m.JoinedAt).Hours() / 24)
		if days <= 0 {
			continue
		}
		total += days
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// ActiveCount counts members active on day b.
func ActiveCount(members []domain.Member, b time.Time) int {
	b = dateOf(b)
	var n int
	for _, m := range members {
		if activeAt(m, b) {
			n++
		}
	}
	return n
}

// NewMembers counts members that joined inside (from, to].
func NewMembers(members []domain.Member, from, to time.Time) int {
	from, to = dateOf(from), dateOf(to)
	var n int
	for _, m := range members {
		if within(m.JoinedAt, from, to) {
			n++
		}
	}
	return n
}

// ChurnedMembers counts members that exited inside (from, to].
func ChurnedMembers(members []domain.Member, from, to time.Time) int {
	from, to = dateOf(from), dateOf(to)
	var n int
	for _, m := range members {
		if within(m.ExitedAt, from, to) {
			n++
		}
	}
	return n
}

// TotalMembers counts members flagged active; TotalPaidMembers also requires a price.
func TotalMembers(members []domain.Member) int {
	var n int
	for _, m := range members {
		if m.IsActive {
			n++
		}
	}
	return n
}

func TotalPaidMembers(members []domain.Member) int {
	var n int
	for _, m := range members {
		if m.IsActive && m.Price > 0 {
			n++
		}
	}
	return n
}
