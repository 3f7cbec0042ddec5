package analytics

import (
	"testing"
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlyFixture() []domain.Member {
	return []domain.Member{
		member("a", domain.PlanMonthly, 100, day(2024, time.January, 10), nil),
		member("b", domain.PlanMonthly, 200, day(2024, time.February, 5), day(2024, time.March, 20)),
		member("c", domain.PlanAnnual, 1200, day(2024, time.March, 1), nil),
		member("undated", domain.PlanMonthly, 500, nil, nil),
	}
}

func TestBuildMonthlySeries(t *testing.T) {
	now := time.Date(2024, time.April, 10, 8, 0, 0, 0, time.UTC)
	rows := BuildMonthlySeries(monthlyFixture(), now)
	require.Len(t, rows, 4)

	jan := rows[0]
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), jan.Month)
	assert.Equal(t, 0, jan.ActiveStart)
	assert.Equal(t, 1, jan.ActiveEnd)
	assert.Equal(t, 1, jan.NewMembers)
	assert.InDelta(t, 100.0, jan.MRR, 1e-9)
	assert.Zero(t, jan.ChurnRate)
	assert.Zero(t, jan.AcquisitionRate)
	assert.Nil(t, jan.LTV)

	feb := rows[1]
	assert.Equal(t, 1, feb.ActiveStart)
	assert.InDelta(t, 300.0, feb.MRR, 1e-9)
	assert.InDelta(t, 1.0, feb.AcquisitionRate, 1e-9)
	assert.InDelta(t, 300.0, feb.ARPU, 1e-9)
	assert.Nil(t, feb.LTV)

	mar := rows[2]
	assert.Equal(t, 3, mar.ActiveStart)
	assert.Equal(t, 2, mar.ActiveEnd)
	assert.Equal(t, 1, mar.NewMembers)
	assert.Equal(t, 1, mar.ChurnedMembers)
	assert.InDelta(t, 200.0, mar.MRR, 1e-9)
	assert.Equal(t, int64(1300), mar.PriceSum)
	assert.InDelta(t, 1.0/3.0, mar.ChurnRate, 1e-9)
	assert.InDelta(t, 1.0/3.0, mar.AcquisitionRate, 1e-9)
	require.NotNil(t, mar.LTV)
	assert.InDelta(t, 200.0, *mar.LTV, 1e-9)

	apr := rows[3]
	assert.Equal(t, 2, apr.ActiveStart)
	assert.Equal(t, 0, apr.NewMembers)
	assert.Equal(t, 0, apr.ChurnedMembers)
}

func TestBuildMonthlySeriesExtendsToLastExit(t *testing.T) {
	now := time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	members := []domain.Member{
		member("a", domain.PlanMonthly, 100, day(2024, time.March, 1), day(2024, time.June, 2)),
	}
	rows := BuildMonthlySeries(members, now)
	require.Len(t, rows, 4)
	assert.Equal(t, time.June, rows[3].Month.Month())
	assert.Equal(t, 1, rows[3].ChurnedMembers)
}

func TestBuildMonthlySeriesEmpty(t *testing.T) {
	now := time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, BuildMonthlySeries(nil, now))
	assert.Nil(t, BuildMonthlySeries([]domain.Member{member("x", domain.PlanMonthly, 1, nil, nil)}, now))
}

func TestBuildMonthlySeriesDeterministic(t *testing.T) {
	now := time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	first := BuildMonthlySeries(monthlyFixture(), now)
	second := BuildMonthlySeries(monthlyFixture(), now)
	assert.Equal(t, first, second)
}
