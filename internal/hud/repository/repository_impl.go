package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/memberhud/internal/hud/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const insertBatchSize = 200

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// ReplaceRows deletes the community's previous rows and inserts rows. The
// dashboard is only replaced for its own period. Callers run it inside a
// transaction.
func (r *repo) ReplaceRows(ctx context.Context, db *gorm.DB, community string, rows domain.Rows) error {
	deletes := []struct {
		sql  string
		args []interface{}
	}{
		{`DELETE FROM hud_dashboard WHERE community_slug = ? AND period = ?`, []interface{}{community, rows.Dashboard.Period}},
		{`DELETE FROM hud_cohort WHERE community_slug = ?`, []interface{}{community}},
		{`DELETE FROM hud_charts WHERE community_slug = ?`, []interface{}{community}},
		{`DELETE FROM hud_members WHERE community_slug = ?`, []interface{}{community}},
		{`DELETE FROM hud_chart_pie WHERE community_slug = ?`, []interface{}{community}},
	}
	for _, d := range deletes {
		if err := db.WithContext(ctx).Exec(d.sql, d.args...).Error; err != nil {
			return err
		}
	}

	rows.Dashboard.CommunitySlug = community
	if err := db.WithContext(ctx).Create(&rows.Dashboard).Error; err != nil {
		return err
	}
	if len(rows.Cohorts) > 0 {
		if err := db.WithContext(ctx).CreateInBatches(rows.Cohorts, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(rows.Monthly) > 0 {
		if err := db.WithContext(ctx).CreateInBatches(rows.Monthly, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(rows.Members) > 0 {
		if err := db.WithContext(ctx).CreateInBatches(rows.Members, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(rows.Pie) > 0 {
		if err := db.WithContext(ctx).CreateInBatches(rows.Pie, insertBatchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) InsertSyncRun(ctx context.Context, db *gorm.DB, run *domain.SyncRun) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) FindDashboard(ctx context.Context, db *gorm.DB, community string, period *time.Time) (*domain.Dashboard, error) {
	var rows []domain.Dashboard
	stmt := db.WithContext(ctx).
		Model(&domain.Dashboard{}).
		Where("community_slug = ?", community)
	if period != nil {
		stmt = stmt.Where("period = ?", datatypes.Date(*period))
	}
	if err := stmt.Order("period desc").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListCohorts(ctx context.Context, db *gorm.DB, community string) ([]domain.Cohort, error) {
	var rows []domain.Cohort
	err := db.WithContext(ctx).
		Where("community_slug = ?", community).
		Order("cohort_month asc, month_offset asc").
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListMonthly(ctx context.Context, db *gorm.DB, community string) ([]domain.MonthlyChart, error) {
	var rows []domain.MonthlyChart
	err := db.WithContext(ctx).
		Where("community_slug = ?", community).
		Order("month asc").
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, community string, afterID string, limit int) ([]domain.Member, error) {
	var rows []domain.Member
	stmt := db.WithContext(ctx).Where("community_slug = ?", community)
	if afterID != "" {
		stmt = stmt.Where("member_id > ?", afterID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.Order("member_id asc").Find(&rows).Error
	return rows, err
}

func (r *repo) ListPieSlices(ctx context.Context, db *gorm.DB, community string) ([]domain.PieSlice, error) {
	var rows []domain.PieSlice
	err := db.WithContext(ctx).
		Where("community_slug = ?", community).
		Order("chart asc, position asc").
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListSyncRuns(ctx context.Context, db *gorm.DB, community string, limit int) ([]domain.SyncRun, error) {
	var rows []domain.SyncRun
	stmt := db.WithContext(ctx).Where("community_slug = ?", community)
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.Order("started_at desc, id desc").Find(&rows).Error
	return rows, err
}
