package analytics

import (
	"testing"
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportPopulation() Population {
	a := member("a", domain.PlanMonthly, 100, day(2024, time.January, 1), nil)
	a.Level = 2
	b := member("b", domain.PlanAnnual, 1200, day(2024, time.May, 20), nil)
	c := member("c", domain.PlanMonthly, 200, day(2024, time.February, 1), day(2024, time.June, 1))

	cancelling := a
	cancelling.Standing = domain.StandingCancelling

	return Population{
		Active:     []domain.Member{a, b},
		Churned:    []domain.Member{c},
		Cancelling: []domain.Member{cancelling},
	}
}

func TestBuildReportDashboard(t *testing.T) {
	report := BuildReport(reportPopulation(), refNow, Options{})

	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), report.Period)

	dash := report.Dashboard
	assert.InDelta(t, 200.0, dash.MRR, 1e-9)
	assert.InDelta(t, 100.0, dash.MRRNoAnnual, 1e-9)
	assert.InDelta(t, 100.0, dash.ARPU, 1e-9)
	assert.Equal(t, 2, dash.TotalMembers)
	assert.Equal(t, 2, dash.TotalPaidMembers)
	assert.Equal(t, 1, dash.NewMembers)
	assert.Equal(t, 1, dash.ChurnedMembers)
	assert.InDelta(t, 50.0, dash.ChurnRate, 1e-9)
	assert.InDelta(t, 50.0, dash.ChurnRateNoAnnual, 1e-9)
	assert.Zero(t, dash.AcquisitionRate)
	assert.Zero(t, dash.GrowthRate)
	assert.False(t, dash.LTV.Infinite)
	assert.InDelta(t, 200.0, dash.LTV.Value, 1e-9)
	require.NotNil(t, dash.Growth.MemberCeiling)
	assert.Zero(t, *dash.Growth.MemberCeiling)
}

func TestBuildReportRowSets(t *testing.T) {
	report := BuildReport(reportPopulation(), refNow, Options{})

	require.Len(t, report.Members, 3)
	byID := map[string]domain.Member{}
	for _, m := range report.Members {
		byID[m.ID] = m
	}
	assert.Equal(t, domain.StandingCancelling, byID["a"].Standing)
	assert.Equal(t, domain.StandingActive, byID["b"].Standing)

	assert.Equal(t, 2, report.Standing.ActiveCount)
	assert.Equal(t, 1, report.Standing.CancellingCount)

	require.Len(t, report.Levels, 8)
	assert.Equal(t, 1, report.Levels[1].Count)
	assert.Equal(t, 100.0, report.Levels[1].Percent)

	require.Len(t, report.Renewals, 9)
	total := 0
	for _, b := range report.Renewals {
		total += b.Count
	}
	assert.Equal(t, 2, total)

	assert.NotEmpty(t, report.Cohorts)
	assert.NotEmpty(t, report.Monthly)
}

func TestBuildReportWithoutChurn(t *testing.T) {
	pop := Population{
		Active: []domain.Member{
			member("a", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
			member("a", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
			member("", domain.PlanMonthly, 100, day(2024, time.January, 1), nil),
		},
	}
	report := BuildReport(pop, refNow, DefaultOptions())

	assert.True(t, report.Dashboard.LTV.Infinite)
	assert.True(t, report.Dashboard.LTVNoAnnual.Infinite)
	assert.Nil(t, report.Dashboard.Growth.MemberCeiling)
	assert.Nil(t, report.Dashboard.Growth.DaysToMemberCeiling)
	assert.Len(t, report.Members, 1)
}

func TestBuildReportEmpty(t *testing.T) {
	report := BuildReport(Population{}, refNow, Options{})
	assert.Zero(t, report.Dashboard.MRR)
	assert.Empty(t, report.Members)
	assert.Empty(t, report.Cohorts)
	assert.Nil(t, report.Monthly)
}
