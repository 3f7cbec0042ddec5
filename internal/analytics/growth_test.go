package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectGrowthNoChurn(t *testing.T) {
	out := ProjectGrowth(GrowthInputs{
		CurrentMembers:     50,
		MonthlyAcquisition: 10,
		AveragePrice:       1000,
	}, DefaultCeilingTargets())

	assert.Nil(t, out.MemberCeiling)
	assert.Nil(t, out.MRRCeiling)
	assert.Nil(t, out.PotentialMaxRevenue)
	assert.Nil(t, out.MonthsToGrowthCeiling)
	assert.Nil(t, out.DaysToGrowthCeiling)
	assert.Nil(t, out.DaysToMemberCeiling)
	assert.Zero(t, out.GrowthRate)
}

func TestProjectGrowth(t *testing.T) {
	out := ProjectGrowth(GrowthInputs{
		CurrentMembers:     100,
		MonthlyAcquisition: 10,
		MonthlyChurnCount:  5,
		ChurnRate:          0.05,
		AveragePrice:       1000,
	}, DefaultCeilingTargets())

	require.NotNil(t, out.MemberCeiling)
	assert.InDelta(t, 200.0, *out.MemberCeiling, 1e-9)
	assert.InDelta(t, 200000.0, *out.MRRCeiling, 1e-6)
	assert.InDelta(t, 2400000.0, *out.PotentialMaxRevenue, 1e-6)
	assert.InDelta(t, 0.05, out.GrowthRate, 1e-9)

	wantMonths := -math.Log(0.1) / 0.05
	assert.InDelta(t, wantMonths, *out.MonthsToGrowthCeiling, 1e-9)
	assert.InDelta(t, wantMonths*30.44, *out.DaysToGrowthCeiling, 1e-6)
	assert.InDelta(t, -math.Log(0.02)/0.05*30.44, *out.DaysToMemberCeiling, 1e-6)
}

func TestProjectGrowthClampsAtTarget(t *testing.T) {
	out := ProjectGrowth(GrowthInputs{
		CurrentMembers:     195,
		MonthlyAcquisition: 10,
		ChurnRate:          0.05,
		AveragePrice:       10,
	}, DefaultCeilingTargets())
	require.NotNil(t, out.MonthsToGrowthCeiling)
	assert.Zero(t, *out.MonthsToGrowthCeiling)
	assert.Greater(t, *out.DaysToMemberCeiling, 0.0)

	over := ProjectGrowth(GrowthInputs{CurrentMembers: 500, MonthlyAcquisition: 10, ChurnRate: 0.05}, DefaultCeilingTargets())
	assert.Zero(t, *over.MonthsToGrowthCeiling)
	assert.Zero(t, *over.DaysToMemberCeiling)

	empty := ProjectGrowth(GrowthInputs{CurrentMembers: 5, ChurnRate: 0.05}, DefaultCeilingTargets())
	require.NotNil(t, empty.MemberCeiling)
	assert.Zero(t, *empty.MemberCeiling)
	assert.Zero(t, *empty.DaysToGrowthCeiling)
}

func TestGrowthInputsFor(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	members := []domain.Member{
		member("cur1", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
		member("cur2", domain.PlanMonthly, 300, day(2024, time.June, 10), nil),
		member("gone", domain.PlanMonthly, 100, day(2024, time.January, 1), day(2024, time.June, 12)),
		member("annual", domain.PlanAnnual, 1200, day(2024, time.June, 11), nil),
		member("free", domain.PlanMonthly, 0, day(2024, time.June, 11), nil),
	}

	in := GrowthInputsFor(members, now, 30, 0.1)
	assert.Equal(t, 2, in.CurrentMembers)
	assert.Equal(t, 1, in.MonthlyAcquisition)
	assert.Equal(t, 1, in.MonthlyChurnCount)
	assert.InDelta(t, 200.0, in.AveragePrice, 1e-9)
	assert.InDelta(t, 0.1, in.ChurnRate, 1e-9)
}
