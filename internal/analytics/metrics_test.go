package analytics

import (
	"testing"
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
	"github.com/stretchr/testify/assert"
)

func member(id string, plan domain.PlanType, price int64, joined, exited *time.Time) domain.Member {
	return domain.Member{
		ID:       id,
		JoinedAt: joined,
		ExitedAt: exited,
		IsActive: exited == nil,
		PlanType: plan,
		Price:    price,
		MRR:      MonthlyRevenue(plan, price),
		Standing: domain.StandingActive,
	}
}

func TestMRRConsistentWithPlan(t *testing.T) {
	for _, plan := range []domain.PlanType{domain.PlanMonthly, domain.PlanAnnual, domain.PlanOneTime, domain.PlanUnknown} {
		m := member("m", plan, 1200, day(2024, time.January, 1), nil)
		switch plan {
		case domain.PlanAnnual:
			assert.InDelta(t, 100.0, m.MRR, 1e-9)
		case domain.PlanMonthly:
			assert.InDelta(t, 1200.0, m.MRR, 1e-9)
		default:
			assert.Zero(t, m.MRR)
		}
	}
}

func TestMRRSumsActiveOnly(t *testing.T) {
	members := []domain.Member{
		member("a", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
		member("b", domain.PlanAnnual, 1200, day(2024, time.January, 1), nil),
		member("c", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.March, 1)),
	}
	assert.InDelta(t, 200.0, MRR(members), 1e-9)
	assert.InDelta(t, 100.0, MRRNoAnnual(members), 1e-9)
}

func TestChurnRateUsesPopulationAtWindowStart(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	stay := member("stay", domain.PlanMonthly, 100, day(2024, time.January, 1), nil)
	leave := member("leave", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.June, 20))

	before := []domain.Member{stay, {
		ID: "leave", JoinedAt: leave.JoinedAt, IsActive: true,
		PlanType: domain.PlanMonthly, Price: 100, MRR: 100,
	}}
	assert.InDelta(t, 200.0, MRR(before), 1e-9)

	members := []domain.Member{stay, leave}
	assert.InDelta(t, 50.0, ChurnRate(members, now, 30, false), 1e-9)
	assert.InDelta(t, 0.5, ChurnRateDecimal(members, now, 30, false), 1e-9)
}

func TestChurnRateWindowBoundaries(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	// window start is 2024-05-31
	onBoundary := member("boundary", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.May, 31))
	onNow := member("now", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.June, 30))
	stay := member("stay", domain.PlanMonthly, 100, day(2024, time.January, 1), nil)

	members := []domain.Member{onBoundary, onNow, stay}
	// boundary exit is neither in the starting population nor in the window
	assert.InDelta(t, 50.0, ChurnRate(members, now, 30, false), 1e-9)
}

func TestChurnRateMonotonicWhenAddingActiveMembers(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	members := []domain.Member{
		member("a", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.June, 10)),
		member("b", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
	}

	prev := ChurnRate(members, now, 30, false)
	for i := 0; i < 10; i++ {
		members = append(members, member("x", domain.PlanMonthly, 100, day(2024, time.February, 1), nil))
		next := ChurnRate(members, now, 30, false)
		assert.LessOrEqual(t, next, prev)
		prev = next
	}
}

func TestChurnRateNoAnnualAndEmpty(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	members := []domain.Member{
		member("annual", domain.PlanAnnual, 1200, day(2024, time.January, 1), day(2024, time.June, 10)),
		member("monthly", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
	}
	assert.InDelta(t, 50.0, ChurnRate(members, now, 30, false), 1e-9)
	assert.Zero(t, ChurnRate(members, now, 30, true))
	assert.Zero(t, ChurnRate(nil, now, 30, false))
}

func TestAcquisitionRateVariants(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	members := []domain.Member{
		member("old1", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
		member("old2", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.June, 5)),
		member("new1", domain.PlanMonthly, 100, day(2024, time.June, 10), nil),
	}

	// two members had joined by the window start, two are listed today
	assert.InDelta(t, 0.0, PopulationAcquisitionRate(members, 2, now, 30), 1e-9)
	assert.InDelta(t, 0.5, PopulationAcquisitionRate(members, 3, now, 30), 1e-9)
	// one join against two members active at window start
	assert.InDelta(t, 0.5, NewJoinAcquisitionRate(members, now, 30), 1e-9)
	assert.Zero(t, PopulationAcquisitionRate(nil, 5, now, 30))
}

func TestGrowthRateAndRetainedRevenue(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	members := []domain.Member{
		member("a", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
		member("b", domain.PlanAnnual, 1200, day(2024, time.January, 1), nil),
		member("c", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.June, 5)),
		member("d", domain.PlanMonthly, 100, day(2024, time.June, 10), nil),
		member("e", domain.PlanMonthly, 100, day(2024, time.June, 12), nil),
	}

	// three active at window start, four now
	assert.InDelta(t, 1.0/3.0, GrowthRate(members, now, 30), 1e-9)
	assert.InDelta(t, 200.0, RetainedRevenue(members, now, 30), 1e-9)
	assert.Zero(t, GrowthRate(nil, now, 30))
}

func TestARPUAndLTV(t *testing.T) {
	members := []domain.Member{
		member("a", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
		member("b", domain.PlanAnnual, 1200, day(2024, time.January, 1), nil),
		member("free", domain.PlanUnknown, 0, day(2024, time.January, 1), nil),
	}
	assert.InDelta(t, 100.0, ARPU(members), 1e-9)
	assert.InDelta(t, 100.0, ARPUNoAnnual(members), 1e-9)
	assert.Zero(t, ARPU(nil))

	ltv := LifetimeValue(100, 0.05)
	assert.False(t, ltv.Infinite)
	assert.InDelta(t, 2000.0, ltv.Value, 1e-9)

	inf := LifetimeValue(100, 0)
	assert.True(t, inf.Infinite)
	assert.Zero(t, inf.Value)
}

func TestAverageLifespanNoAnnual(t *testing.T) {
	members := []domain.Member{
		member("a", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.January, 11)),
		member("b", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.January, 31)),
		member("same_day", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.January, 1)),
		member("annual", domain.PlanAnnual, 1200, day(2023, time.January, 1), day(2024, time.January, 1)),
		member("active", domain.PlanMonthly, 100, day(2023, time.January, 1), nil),
	}
	assert.InDelta(t, 20.0, AverageLifespanNoAnnual(members), 1e-9)
	assert.Zero(t, AverageLifespanNoAnnual(members[2:]))
}

func TestWindowCounters(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	start := now.AddDate(0, 0, -30)
	prev := start.AddDate(0, 0, -30)
	members := []domain.Member{
		member("a", domain.PlanMonthly, 100, day(2024, time.June, 10), nil),
		member("b", domain.PlanMonthly, 0, day(2024, time.May, 10), day(2024, time.June, 3)),
		member("c", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
	}

	assert.Equal(t, 1, NewMembers(members, start, now))
	assert.Equal(t, 1, NewMembers(members, prev, start))
	assert.Equal(t, 1, ChurnedMembers(members, start, now))
	assert.Equal(t, 2, TotalMembers(members))
	assert.Equal(t, 2, TotalPaidMembers(members))
}
