package analytics

import (
	"math"
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

// GrowthInputs feeds the ceiling projection. ChurnRate is a 30 day decimal.
type GrowthInputs struct {
	CurrentMembers     int
	MonthlyAcquisition int
	MonthlyChurnCount  int
	ChurnRate          float64
	AveragePrice       float64
}

// CeilingTargets are the fractions of the member ceiling to time.
type CeilingTargets struct {
	Growth float64
	Member float64
}

func DefaultCeilingTargets() CeilingTargets {
	return CeilingTargets{Growth: 0.95, Member: 0.99}
}

// GrowthProjection is nil in every ceiling field when churn is zero, meaning
// the population never converges.
type GrowthProjection struct {
	MemberCeiling         *float64
	MRRCeiling            *float64
	PotentialMaxRevenue   *float64
	MonthsToGrowthCeiling *float64
	DaysToGrowthCeiling   *float64
	DaysToMemberCeiling   *float64
	GrowthRate            float64
}

// GrowthInputsFor derives projection inputs from monthly, paying members.
// churnRate is the population churn for the same window, as a decimal.
func GrowthInputsFor(members []domain.Member, now time.Time, windowDays int, churnRate float64) GrowthInputs {
	today := dateOf(now)
	start := windowStart(today, windowDays)

	in := GrowthInputs{ChurnRate: churnRate}
	var priceSum int64
	for _, m := range members {
		if m.PlanType != domain.PlanMonthly || m.Price <= 0 {
			continue
		}
		if m.IsActive {
			in.CurrentMembers++
			priceSum += m.Price
		}
		if within(m.JoinedAt, start, today) {
			in.MonthlyAcquisition++
		}
		if !m.IsActive && within(m.ExitedAt, start, today) {
			in.MonthlyChurnCount++
		}
	}
	if in.CurrentMembers > 0 {
		in.AveragePrice = float64(priceSum) / float64(in.CurrentMembers)
	}
	return in
}

// ProjectGrowth models N(t) = C - (C - N0) * e^(-churn*t) with C the member
// ceiling acquisition/churn, and times reaching the configured targets.
func ProjectGrowth(in GrowthInputs, targets CeilingTargets) GrowthProjection {
	if in.ChurnRate <= 0 {
		return GrowthProjection{}
	}
	if targets.Growth <= 0 || targets.Growth >= 1 {
		targets.Growth = DefaultCeilingTargets().Growth
	}
	if targets.Member <= 0 || targets.Member >= 1 {
		targets.Member = DefaultCeilingTargets().Member
	}

	ceiling := float64(in.MonthlyAcquisition) / in.ChurnRate
	mrrCeiling := ceiling * in.AveragePrice
	potential := mrrCeiling * 12

	out := GrowthProjection{
		MemberCeiling:       &ceiling,
		MRRCeiling:          &mrrCeiling,
		PotentialMaxRevenue: &potential,
	}
	if in.CurrentMembers > 0 {
		out.GrowthRate = float64(in.MonthlyAcquisition-in.MonthlyChurnCount) / float64(in.CurrentMembers)
	}

	months := monthsToCeiling(ceiling, float64(in.CurrentMembers), in.ChurnRate, targets.Growth)
	days := months * daysPerMonth
	memberDays := monthsToCeiling(ceiling, float64(in.CurrentMembers), in.ChurnRate, targets.Member) * daysPerMonth
	out.MonthsToGrowthCeiling = &months
	out.DaysToGrowthCeiling = &days
	out.DaysToMemberCeiling = &memberDays
	return out
}

func monthsToCeiling(ceiling, current, churn, pct float64) float64 {
	if ceiling == 0 || current >= ceiling*pct {
		return 0
	}
	r := (ceiling - pct*ceiling) / (ceiling - current)
	if r <= 0 {
		return 0
	}
	t := -math.Log(r) / churn
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	return t
}
