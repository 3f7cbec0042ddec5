package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/memberhud/internal/clock"
	"github.com/smallbiznis/memberhud/internal/config"
	"github.com/smallbiznis/memberhud/internal/hud/domain"
	"github.com/smallbiznis/memberhud/internal/hud/repository"
	membership "github.com/smallbiznis/memberhud/internal/membership/domain"
	"github.com/smallbiznis/memberhud/internal/snapshot"
	"github.com/smallbiznis/memberhud/pkg/db/dbtest"
	"github.com/smallbiznis/memberhud/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const snapshotBody = `{
  "fetched_at": "2024-06-15T10:00:00Z",
  "active": [
    {"id": "m1", "member": {"approvedAt": "2024-01-10T00:00:00Z", "billingProductId": "bp-m"}, "metadata": {"spData": {"lv": 2}}},
    {"id": "m2", "member": {"approvedAt": "2024-06-01T00:00:00Z", "billingProductId": "bp-y"}}
  ],
  "churned": [
    {"id": "m3", "member": {"approvedAt": "2024-02-01T00:00:00Z", "churned": "2024-06-05T00:00:00Z", "removedAt": "2024-06-06T00:00:00Z", "billingProductId": "bp-m"}}
  ],
  "cancelling": [
    {"id": "m1", "member": {"approvedAt": "2024-01-10T00:00:00Z", "billingProductId": "bp-m"}}
  ],
  "billing_products": [
    {"monthlyBpId": "bp-m", "monthlyBillingProduct": {"amount": 1000}, "annualBpId": "bp-y", "annualBillingProduct": {"amount": 12000}}
  ]
}`

type fakeSource struct {
	snapshots map[string]membership.Snapshot
}

func (f *fakeSource) Load(_ context.Context, community string) (membership.Snapshot, error) {
	snap, ok := f.snapshots[community]
	if !ok {
		return membership.Snapshot{}, snapshot.ErrNotFound
	}
	return snap, nil
}

type fixture struct {
	db     *gorm.DB
	svc    domain.Service
	source *fakeSource
	clock  *clock.FakeClock
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := dbtest.New(t)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	var snap membership.Snapshot
	require.NoError(t, json.Unmarshal([]byte(snapshotBody), &snap))
	snap.Community = "alpha"

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	source := &fakeSource{snapshots: map[string]membership.Snapshot{"alpha": snap}}
	clk := clock.NewFakeClock(time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Source:    source,
		Clock:     clk,
		Cfg:       config.Config{Sync: config.SyncConfig{Timeout: time.Minute, LockTTL: time.Minute}},
		Analytics: config.NewStaticAnalyticsConfigHolder(config.DefaultAnalyticsConfig()),
	})
	return fixture{db: db, svc: svc, source: source, clock: clk}
}

func TestSyncPersistsReport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	run, err := f.svc.Sync(ctx, " Alpha ")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSucceeded, run.Status)
	assert.Equal(t, "alpha", run.CommunitySlug)
	assert.Equal(t, 3, run.MemberCount)
	assert.NotEmpty(t, run.Details)

	dash, err := f.svc.GetDashboard(ctx, "alpha", "")
	require.NoError(t, err)
	assert.Equal(t, run.ID, dash.SyncRunID)
	assert.Equal(t, 2, dash.TotalMembers)
	assert.Equal(t, int64(2000), dash.MRR)
	assert.Equal(t, int64(1000), dash.MRRNoAnnual)

	byPeriod, err := f.svc.GetDashboard(ctx, "alpha", "2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, dash.SyncRunID, byPeriod.SyncRunID)

	dist, err := f.svc.GetDistributions(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, dist.Standing, 2)
	assert.Equal(t, "active", dist.Standing[0].Label)
	assert.Equal(t, 1, dist.Standing[1].Count)
	assert.NotEmpty(t, dist.Levels)
	assert.NotEmpty(t, dist.Renewals)

	cohorts, err := f.svc.ListCohorts(ctx, "alpha")
	require.NoError(t, err)
	assert.NotEmpty(t, cohorts)

	monthly, err := f.svc.ListMonthly(ctx, "alpha")
	require.NoError(t, err)
	assert.NotEmpty(t, monthly)

	runs, err := f.svc.ListSyncRuns(ctx, "alpha", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestSyncIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Sync(ctx, "alpha")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Sync(ctx, "alpha")
	require.NoError(t, err)

	var members int64
	require.NoError(t, f.db.Model(&domain.Member{}).Where("community_slug = ?", "alpha").Count(&members).Error)
	assert.Equal(t, int64(3), members)

	var dashboards int64
	require.NoError(t, f.db.Model(&domain.Dashboard{}).Where("community_slug = ?", "alpha").Count(&dashboards).Error)
	assert.Equal(t, int64(1), dashboards)

	runs, err := f.svc.ListSyncRuns(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSyncMissingSnapshotRecordsFailedRun(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	run, err := f.svc.Sync(ctx, "beta")
	require.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	assert.Equal(t, domain.SyncStatusFailed, run.Status)

	runs, err := f.svc.ListSyncRuns(ctx, "beta", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.SyncStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "snapshot_not_found")

	_, err = f.svc.GetDashboard(ctx, "beta", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncRejectsInvalidCommunity(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Sync(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidCommunity)
}

func TestGetDashboardInvalidPeriod(t *testing.T) {
	f := setup(t)

	_, err := f.svc.GetDashboard(context.Background(), "alpha", "June")
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestListMembersPages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.Sync(ctx, "alpha")
	require.NoError(t, err)

	first, err := f.svc.ListMembers(ctx, domain.ListMembersRequest{
		Community:  "alpha",
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Members, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "m1", first.Members[0].MemberID)

	second, err := f.svc.ListMembers(ctx, domain.ListMembersRequest{
		Community:  "alpha",
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Members, 1)
	assert.Equal(t, "m3", second.Members[0].MemberID)
	assert.False(t, second.HasMore)

	_, err = f.svc.ListMembers(ctx, domain.ListMembersRequest{
		Community:  "alpha",
		Pagination: pagination.Pagination{PageToken: "%%%"},
	})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}
