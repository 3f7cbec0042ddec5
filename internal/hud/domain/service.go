package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/memberhud/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	ReplaceRows(ctx context.Context, db *gorm.DB, community string, rows Rows) error
	InsertSyncRun(ctx context.Context, db *gorm.DB, run *SyncRun) error

	FindDashboard(ctx context.Context, db *gorm.DB, community string, period *time.Time) (*Dashboard, error)
	ListCohorts(ctx context.Context, db *gorm.DB, community string) ([]Cohort, error)
	ListMonthly(ctx context.Context, db *gorm.DB, community string) ([]MonthlyChart, error)
	ListMembers(ctx context.Context, db *gorm.DB, community string, afterID string, limit int) ([]Member, error)
	ListPieSlices(ctx context.Context, db *gorm.DB, community string) ([]PieSlice, error)
	ListSyncRuns(ctx context.Context, db *gorm.DB, community string, limit int) ([]SyncRun, error)
}

type ListMembersRequest struct {
	Community string
	pagination.Pagination
}

type ListMembersResponse struct {
	pagination.PageInfo
	Members []Member `json:"members"`
}

// Syncer runs one sync for a community.
type Syncer interface {
	Sync(ctx context.Context, community string) (SyncRun, error)
}

type Service interface {
	Syncer

	GetDashboard(ctx context.Context, community string, period string) (Dashboard, error)
	ListCohorts(ctx context.Context, community string) ([]Cohort, error)
	ListMonthly(ctx context.Context, community string) ([]MonthlyChart, error)
	ListMembers(ctx context.Context, req ListMembersRequest) (ListMembersResponse, error)
	GetDistributions(ctx context.Context, community string) (Distributions, error)
	ListSyncRuns(ctx context.Context, community string, limit int) ([]SyncRun, error)
}
