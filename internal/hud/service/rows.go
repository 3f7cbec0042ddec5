package service

import (
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/memberhud/internal/analytics"
	"github.com/smallbiznis/memberhud/internal/hud/domain"
	membership "github.com/smallbiznis/memberhud/internal/membership/domain"
	"gorm.io/datatypes"
)

// buildRows converts a report into persisted rows. Money truncates toward
// zero and decimal rates become percentages.
func buildRows(community string, runID snowflake.ID, report analytics.Report, createdAt time.Time) domain.Rows {
	return domain.Rows{
		Dashboard: dashboardRow(community, runID, report, createdAt),
		Cohorts:   cohortRows(community, report.Cohorts),
		Monthly:   monthlyRows(community, report.Monthly),
		Members:   memberRows(community, report.Members),
		Pie:       pieRows(community, report),
	}
}

func dashboardRow(community string, runID snowflake.ID, report analytics.Report, createdAt time.Time) domain.Dashboard {
	d := report.Dashboard
	ltv, ltvInfinite := ltvColumn(d.LTV)
	ltvNoAnnual, ltvNoAnnualInfinite := ltvColumn(d.LTVNoAnnual)

	return domain.Dashboard{
		CommunitySlug:           community,
		Period:                  datatypes.Date(report.Period),
		SyncRunID:               runID,
		MRR:                     minor(d.MRR),
		MRRNoAnnual:             minor(d.MRRNoAnnual),
		ARPU:                    minor(d.ARPU),
		ARPUNoAnnual:            minor(d.ARPUNoAnnual),
		LTV:                     ltv,
		LTVInfinite:             ltvInfinite,
		LTVNoAnnual:             ltvNoAnnual,
		LTVNoAnnualInfinite:     ltvNoAnnualInfinite,
		AverageLifespanNoAnnual: d.AverageLifespanNoAnnual,
		TotalMembers:            d.TotalMembers,
		TotalPaidMembers:        d.TotalPaidMembers,
		NewMembers30d:           d.NewMembers,
		NewMembersPrev30d:       d.NewMembersPrev,
		ChurnedMembers30d:       d.ChurnedMembers,
		ChurnRate:               d.ChurnRate,
		ChurnRateNoAnnual:       d.ChurnRateNoAnnual,
		GrowthRate:              d.GrowthRate,
		AcquisitionRate:         d.AcquisitionRate,
		NewMemberRate:           d.NewMemberRate,
		RetainedRevenue:         minor(d.RetainedRevenue),
		MemberCeiling:           optMinor(d.Growth.MemberCeiling),
		MRRCeiling:              optMinor(d.Growth.MRRCeiling),
		PotentialMaxRevenue:     optMinor(d.Growth.PotentialMaxRevenue),
		DaysToGrowthCeiling:     d.Growth.DaysToGrowthCeiling,
		DaysToMemberCeiling:     d.Growth.DaysToMemberCeiling,
		MonthsToGrowthCeiling:   d.Growth.MonthsToGrowthCeiling,
		NetGrowthRate:           d.Growth.GrowthRate * 100,
		TotalRevenueYTD:         minor(d.TotalRevenueYTD),
		CreatedAt:               createdAt,
	}
}

func cohortRows(community string, cohorts []analytics.CohortRow) []domain.Cohort {
	out := make([]domain.Cohort, 0, len(cohorts)*analytics.DefaultCohortMaxMonths)
	for _, c := range cohorts {
		for _, cell := range c.Cells {
			out = append(out, domain.Cohort{
				CommunitySlug:   community,
				CohortMonth:     datatypes.Date(c.CohortMonth),
				MonthOffset:     cell.Offset,
				CohortSize:      c.Size,
				RetainedCount:   cell.RetainedCount,
				RetainedPercent: cell.RetainedPercent,
			})
		}
	}
	return out
}

func monthlyRows(community string, series []analytics.MonthlyRow) []domain.MonthlyChart {
	out := make([]domain.MonthlyChart, 0, len(series))
	for _, m := range series {
		out = append(out, domain.MonthlyChart{
			CommunitySlug:   community,
			Month:           datatypes.Date(m.Month),
			MRR:             minor(m.MRR),
			ARPU:            minor(m.ARPU),
			LTV:             optMinor(m.LTV),
			NewMembers:      m.NewMembers,
			ChurnedMembers:  m.ChurnedMembers,
			ActiveStart:     m.ActiveStart,
			ActiveEnd:       m.ActiveEnd,
			ChurnRate:       m.ChurnRate * 100,
			AcquisitionRate: m.AcquisitionRate * 100,
			PriceSum:        m.PriceSum,
		})
	}
	return out
}

func memberRows(community string, members []membership.Member) []domain.Member {
	out := make([]domain.Member, 0, len(members))
	for _, m := range members {
		out = append(out, domain.Member{
			CommunitySlug: community,
			MemberID:      m.ID,
			JoinedAt:      m.JoinedAt,
			ExitedAt:      m.ExitedAt,
			IsActive:      m.IsActive,
			PlanType:      string(m.PlanType),
			Price:         m.Price,
			MRR:           minor(m.MRR),
			Level:         m.Level,
			MonthsRenewed: m.MonthsRenewed,
			Standing:      string(m.Standing),
		})
	}
	return out
}

func pieRows(community string, report analytics.Report) []domain.PieSlice {
	out := make([]domain.PieSlice, 0, len(report.Levels)+len(report.Renewals)+2)
	for _, b := range report.Levels {
		out = append(out, domain.PieSlice{
			CommunitySlug: community,
			Chart:         domain.ChartLevels,
			Label:         strconv.Itoa(b.Level),
			Position:      b.Level,
			Count:         b.Count,
			Percent:       b.Percent,
		})
	}

	s := report.Standing
	out = append(out,
		domain.PieSlice{
			CommunitySlug: community,
			Chart:         domain.ChartStanding,
			Label:         string(membership.StandingActive),
			Position:      0,
			Count:         s.ActiveCount,
			Percent:       s.ActivePercent,
		},
		domain.PieSlice{
			CommunitySlug: community,
			Chart:         domain.ChartStanding,
			Label:         string(membership.StandingCancelling),
			Position:      1,
			Count:         s.CancellingCount,
			Percent:       s.CancellingPercent,
		},
	)

	for _, b := range report.Renewals {
		label := strconv.Itoa(b.MonthsRenewed)
		if b.OpenEnded() {
			label += "+"
		}
		out = append(out, domain.PieSlice{
			CommunitySlug: community,
			Chart:         domain.ChartRenewals,
			Label:         label,
			Position:      b.MonthsRenewed,
			Count:         b.Count,
			Percent:       b.Percent,
		})
	}
	return out
}

func minor(v float64) int64 {
	return int64(v)
}

func optMinor(v *float64) *int64 {
	if v == nil {
		return nil
	}
	out := int64(*v)
	return &out
}

func ltvColumn(l analytics.LTV) (*int64, bool) {
	if l.Infinite {
		return nil, true
	}
	v := int64(l.Value)
	return &v, false
}
