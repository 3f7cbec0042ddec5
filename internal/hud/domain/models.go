package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	SyncStatusSucceeded = "succeeded"
	SyncStatusFailed    = "failed"
	SyncStatusSkipped   = "skipped"
)

const (
	ChartLevels   = "levels"
	ChartStanding = "standing"
	ChartRenewals = "renewals"
)

// Dashboard is the aggregate row of one community for one period. Money is in
// minor units and every rate is a percentage.
type Dashboard struct {
	CommunitySlug           string         `gorm:"column:community_slug;primaryKey" json:"community"`
	Period                  datatypes.Date `gorm:"column:period;primaryKey" json:"period"`
	SyncRunID               snowflake.ID   `gorm:"column:sync_run_id" json:"sync_run_id"`
	MRR                     int64          `gorm:"column:mrr" json:"mrr"`
	MRRNoAnnual             int64          `gorm:"column:mrr_no_annual" json:"mrr_no_annual"`
	ARPU                    int64          `gorm:"column:arpu" json:"arpu"`
	ARPUNoAnnual            int64          `gorm:"column:arpu_no_annual" json:"arpu_no_annual"`
	LTV                     *int64         `gorm:"column:ltv" json:"ltv"`
	LTVInfinite             bool           `gorm:"column:ltv_infinite" json:"ltv_infinite"`
	LTVNoAnnual             *int64         `gorm:"column:ltv_no_annual" json:"ltv_no_annual"`
	LTVNoAnnualInfinite     bool           `gorm:"column:ltv_no_annual_infinite" json:"ltv_no_annual_infinite"`
	AverageLifespanNoAnnual float64        `gorm:"column:average_lifespan_no_annual" json:"average_lifespan_no_annual"`
	TotalMembers            int            `gorm:"column:total_members" json:"total_members"`
	TotalPaidMembers        int            `gorm:"column:total_paid_members" json:"total_paid_members"`
	NewMembers30d           int            `gorm:"column:new_members_30d" json:"new_members_30d"`
	NewMembersPrev30d       int            `gorm:"column:new_members_prev_30d" json:"new_members_prev_30d"`
	ChurnedMembers30d       int            `gorm:"column:churned_members_30d" json:"churned_members_30d"`
	ChurnRate               float64        `gorm:"column:churn_rate" json:"churn_rate"`
	ChurnRateNoAnnual       float64        `gorm:"column:churn_rate_no_annual" json:"churn_rate_no_annual"`
	GrowthRate              float64        `gorm:"column:growth_rate" json:"growth_rate"`
	AcquisitionRate         float64        `gorm:"column:acquisition_rate" json:"acquisition_rate"`
	NewMemberRate           float64        `gorm:"column:new_member_rate" json:"new_member_rate"`
	RetainedRevenue         int64          `gorm:"column:retained_revenue" json:"retained_revenue"`
	MemberCeiling           *int64         `gorm:"column:member_ceiling" json:"member_ceiling"`
	MRRCeiling              *int64         `gorm:"column:mrr_ceiling" json:"mrr_ceiling"`
	PotentialMaxRevenue     *int64         `gorm:"column:potential_max_revenue" json:"potential_max_revenue"`
	DaysToGrowthCeiling     *float64       `gorm:"column:days_to_growth_ceiling" json:"days_to_growth_ceiling"`
	DaysToMemberCeiling     *float64       `gorm:"column:days_to_member_ceiling" json:"days_to_member_ceiling"`
	MonthsToGrowthCeiling   *float64       `gorm:"column:months_to_growth_ceiling" json:"months_to_growth_ceiling"`
	NetGrowthRate           float64        `gorm:"column:net_growth_rate" json:"net_growth_rate"`
	TotalRevenueYTD         int64          `gorm:"column:total_revenue_ytd" json:"total_revenue_ytd"`
	CreatedAt               time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Dashboard) TableName() string { return "hud_dashboard" }

// Cohort is one cell of the retention grid.
type Cohort struct {
	CommunitySlug   string         `gorm:"column:community_slug;primaryKey" json:"-"`
	CohortMonth     datatypes.Date `gorm:"column:cohort_month;primaryKey" json:"cohort_month"`
	MonthOffset     int            `gorm:"column:month_offset;primaryKey" json:"month_offset"`
	CohortSize      int            `gorm:"column:cohort_size" json:"cohort_size"`
	RetainedCount   int            `gorm:"column:retained_count" json:"retained_count"`
	RetainedPercent float64        `gorm:"column:retained_percent" json:"retained_percent"`
}

func (Cohort) TableName() string { return "hud_cohort" }

// MonthlyChart is one month of the time series.
type MonthlyChart struct {
	CommunitySlug   string         `gorm:"column:community_slug;primaryKey" json:"-"`
	Month           datatypes.Date `gorm:"column:month;primaryKey" json:"month"`
	MRR             int64          `gorm:"column:mrr" json:"mrr"`
	ARPU            int64          `gorm:"column:arpu" json:"arpu"`
	LTV             *int64         `gorm:"column:ltv" json:"ltv"`
	NewMembers      int            `gorm:"column:new_members" json:"new_members"`
	ChurnedMembers  int            `gorm:"column:churned_members" json:"churned_members"`
	ActiveStart     int            `gorm:"column:active_start" json:"active_start"`
	ActiveEnd       int            `gorm:"column:active_end" json:"active_end"`
	ChurnRate       float64        `gorm:"column:churn_rate" json:"churn_rate"`
	AcquisitionRate float64        `gorm:"column:acquisition_rate" json:"acquisition_rate"`
	PriceSum        int64          `gorm:"column:price_sum" json:"price_sum"`
}

func (MonthlyChart) TableName() string { return "hud_charts" }

// Member is the persisted view of one canonical member.
type Member struct {
	CommunitySlug string     `gorm:"column:community_slug;primaryKey" json:"-"`
	MemberID      string     `gorm:"column:member_id;primaryKey" json:"id"`
	JoinedAt      *time.Time `gorm:"column:joined_at" json:"joined_at"`
	ExitedAt      *time.Time `gorm:"column:exited_at" json:"exited_at"`
	IsActive      bool       `gorm:"column:is_active" json:"is_active"`
	PlanType      string     `gorm:"column:plan_type" json:"plan_type"`
	Price         int64      `gorm:"column:price" json:"price"`
	MRR           int64      `gorm:"column:mrr" json:"mrr"`
	Level         int        `gorm:"column:level" json:"level"`
	MonthsRenewed int        `gorm:"column:months_renewed" json:"months_renewed"`
	Standing      string     `gorm:"column:standing" json:"standing"`
}

func (Member) TableName() string { return "hud_members" }

// PieSlice is one slice of a distribution chart.
type PieSlice struct {
	CommunitySlug string  `gorm:"column:community_slug;primaryKey" json:"-"`
	Chart         string  `gorm:"column:chart;primaryKey" json:"chart"`
	Label         string  `gorm:"column:label;primaryKey" json:"label"`
	Position      int     `gorm:"column:position" json:"position"`
	Count         int     `gorm:"column:count" json:"count"`
	Percent       float64 `gorm:"column:percent" json:"percent"`
}

func (PieSlice) TableName() string { return "hud_chart_pie" }

// SyncRun records one sync attempt.
type SyncRun struct {
	ID            snowflake.ID   `gorm:"column:id;primaryKey" json:"id"`
	CommunitySlug string         `gorm:"column:community_slug" json:"community"`
	Status        string         `gorm:"column:status" json:"status"`
	Period        datatypes.Date `gorm:"column:period" json:"period"`
	MemberCount   int            `gorm:"column:member_count" json:"member_count"`
	Error         string         `gorm:"column:error" json:"error,omitempty"`
	Details       datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	StartedAt     time.Time      `gorm:"column:started_at" json:"started_at"`
	FinishedAt    time.Time      `gorm:"column:finished_at" json:"finished_at"`
}

func (SyncRun) TableName() string { return "hud_sync_runs" }

// Rows is every row set one sync replaces.
type Rows struct {
	Dashboard Dashboard
	Cohorts   []Cohort
	Monthly   []MonthlyChart
	Members   []Member
	Pie       []PieSlice
}

// Distributions groups the pie slices by chart.
type Distributions struct {
	Levels   []PieSlice `json:"levels"`
	Standing []PieSlice `json:"standing"`
	Renewals []PieSlice `json:"renewals"`
}

// Models lists every HUD table model.
func Models() []interface{} {
	return []interface{}{
		&Dashboard{},
		&Cohort{},
		&MonthlyChart{},
		&Member{},
		&PieSlice{},
		&SyncRun{},
	}
}
