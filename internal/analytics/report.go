package analytics

import (
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

// Options tunes the report. Zero values fall back to defaults.
type Options struct {
	WindowDays       int
	CohortMaxMonths  int
	GrowthCeilingPct float64
	MemberCeilingPct float64
}

func DefaultOptions() Options {
	targets := DefaultCeilingTargets()
	return Options{
		WindowDays:       DefaultWindowDays,
		CohortMaxMonths:  DefaultCohortMaxMonths,
		GrowthCeilingPct: targets.Growth,
		MemberCeilingPct: targets.Member,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WindowDays <= 0 {
		o.WindowDays = d.WindowDays
	}
	if o.CohortMaxMonths <= 0 {
		o.CohortMaxMonths = d.CohortMaxMonths
	}
	if o.GrowthCeilingPct <= 0 || o.GrowthCeilingPct >= 1 {
		o.GrowthCeilingPct = d.GrowthCeilingPct
	}
	if o.MemberCeilingPct <= 0 || o.MemberCeilingPct >= 1 {
		o.MemberCeilingPct = d.MemberCeilingPct
	}
	return o
}

// Dashboard is the point-in-time summary. Rates are percentages, money is in
// minor units.
type Dashboard struct {
	MRR                     float64
	MRRNoAnnual             float64
	ARPU                    float64
	ARPUNoAnnual            float64
	LTV                     LTV
	LTVNoAnnual             LTV
	AverageLifespanNoAnnual float64
	TotalMembers            int
	TotalPaidMembers        int
	NewMembers              int
	NewMembersPrev          int
	ChurnedMembers          int
	ChurnRate               float64
	ChurnRateNoAnnual       float64
	GrowthRate              float64
	AcquisitionRate         float64
	NewMemberRate           float64
	RetainedRevenue         float64
	Growth                  GrowthProjection
	TotalRevenueYTD         float64
}

// Report is every row set of one run.
type Report struct {
	Period    time.Time
	Dashboard Dashboard
	Cohorts   []CohortRow
	Monthly   []MonthlyRow
	Members   []domain.Member
	Levels    []LevelBucket
	Standing  StandingSplit
	Renewals  []RenewalBucket
}

// BuildReport runs every calculator over pop as of now.
func BuildReport(pop Population, now time.Time, opts Options) Report {
	opts = opts.withDefaults()
	today := dateOf(now)
	window := opts.WindowDays
	start := windowStart(today, window)
	members := pop.All()

	churn := ChurnRateDecimal(members, today, window, false)
	churnNoAnnual := ChurnRateDecimal(members, today, window, true)
	arpu := ARPU(members)
	arpuNoAnnual := ARPUNoAnnual(members)

	dash := Dashboard{
		MRR:                     MRR(members),
		MRRNoAnnual:             MRRNoAnnual(members),
		ARPU:                    arpu,
		ARPUNoAnnual:            arpuNoAnnual,
		LTV:                     LifetimeValue(arpu, churn),
		LTVNoAnnual:             LifetimeValue(arpuNoAnnual, churnNoAnnual),
		AverageLifespanNoAnnual: AverageLifespanNoAnnual(members),
		TotalMembers:            TotalMembers(members),
		TotalPaidMembers:        TotalPaidMembers(members),
		NewMembers:              NewMembers(members, start, today),
		NewMembersPrev:          NewMembers(members, windowStart(start, window), start),
		ChurnedMembers:          ChurnedMembers(members, start, today),
		ChurnRate:               churn * 100,
		ChurnRateNoAnnual:       churnNoAnnual * 100,
		GrowthRate:              GrowthRate(members, today, window) * 100,
		AcquisitionRate:         PopulationAcquisitionRate(members, len(pop.Active), today, window) * 100,
		NewMemberRate:           NewJoinAcquisitionRate(members, today, window) * 100,
		RetainedRevenue:         RetainedRevenue(members, today, window),
		TotalRevenueYTD:         TotalRevenueYTD(members, today),
	}
	dash.Growth = ProjectGrowth(
		GrowthInputsFor(members, today, window, churn),
		CeilingTargets{Growth: opts.GrowthCeilingPct, Member: opts.MemberCeilingPct},
	)

	standing := make([]domain.Member, 0, len(pop.Active)+len(pop.Cancelling))
	standing = append(standing, pop.Active...)
	standing = append(standing, pop.Cancelling...)

	return Report{
		Period:    today,
		Dashboard: dash,
		Cohorts:   BuildCohorts(members, today, opts.CohortMaxMonths),
		Monthly:   BuildMonthlySeries(members, today),
		Members:   memberRows(pop),
		Levels:    LevelDistribution(members),
		Standing:  SplitStanding(standing),
		Renewals:  RenewalDistribution(pop.Active),
	}
}

// memberRows dedupes active and churned members by id and marks those found
// in the cancelling listing.
func memberRows(pop Population) []domain.Member {
	cancelling := make(map[string]struct{}, len(pop.Cancelling))
	for _, m := range pop.Cancelling {
		cancelling[m.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(pop.Active)+len(pop.Churned))
	out := make([]domain.Member, 0, len(pop.Active)+len(pop.Churned))
	for _, m := range pop.All() {
		if m.ID == "" {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		if _, ok := cancelling[m.ID]; ok {
			m.Standing = domain.StandingCancelling
		}
		out = append(out, m)
	}
	return out
}
