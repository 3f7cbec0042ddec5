package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/memberhud/internal/analytics"
	"github.com/smallbiznis/memberhud/internal/cache"
	"github.com/smallbiznis/memberhud/internal/clock"
	"github.com/smallbiznis/memberhud/internal/config"
	"github.com/smallbiznis/memberhud/internal/hud/domain"
	obscontext "github.com/smallbiznis/memberhud/internal/observability/context"
	"github.com/smallbiznis/memberhud/internal/observability/logger"
	"github.com/smallbiznis/memberhud/internal/observability/metrics"
	"github.com/smallbiznis/memberhud/internal/observability/tracing"
	"github.com/smallbiznis/memberhud/internal/snapshot"
	"github.com/smallbiznis/memberhud/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxRunErrorLength   = 512
	defaultSyncRunLimit = 20
	maxSyncRunLimit     = 100
	periodLayout        = "2006-01-02"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Source    snapshot.Source
	Clock     clock.Clock
	Cfg       config.Config
	Analytics *config.AnalyticsConfigHolder
	Locker    *cache.Locker
	Cache     *cache.DashboardCache
	Metrics   *metrics.Metrics     `optional:"true"`
	SyncStats *metrics.SyncMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	source    snapshot.Source
	clock     clock.Clock
	analytics *config.AnalyticsConfigHolder
	locker    *cache.Locker
	cache     *cache.DashboardCache
	metrics   *metrics.Metrics
	syncStats *metrics.SyncMetrics
	timeout   time.Duration
	lockTTL   time.Duration
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("hud.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		source:    p.Source,
		clock:     p.Clock,
		analytics: p.Analytics,
		locker:    p.Locker,
		cache:     p.Cache,
		metrics:   p.Metrics,
		syncStats: p.SyncStats,
		timeout:   p.Cfg.Sync.Timeout,
		lockTTL:   p.Cfg.Sync.LockTTL,
	}
}

// Sync recomputes every row set of a community from its latest snapshot and
// replaces the stored rows in one transaction. A concurrent sync of the same
// community is recorded as skipped and reported as ErrSyncInProgress.
func (s *Service) Sync(ctx context.Context, community string) (domain.SyncRun, error) {
	slug, err := domain.NormalizeCommunity(community)
	if err != nil {
		return domain.SyncRun{}, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx = obscontext.WithCommunity(ctx, slug)
	ctx, span := tracing.StartSpan(ctx, "hud.sync", attribute.String("community", slug))
	log := logger.WithContext(ctx, s.log)

	startedAt := s.clock.Now().UTC()
	run := domain.SyncRun{
		ID:            s.genID.Generate(),
		CommunitySlug: slug,
		Period:        datatypes.Date(time.Date(startedAt.Year(), startedAt.Month(), startedAt.Day(), 0, 0, 0, 0, time.UTC)),
		StartedAt:     startedAt,
	}
	log = log.With(zap.String("sync_run_id", run.ID.String()))
	log.Info("hud.sync.start")

	token, locked, err := s.locker.TryLockSync(ctx, slug, s.lockTTL)
	if err != nil {
		err = fmt.Errorf("acquire sync lock: %w", err)
		s.finish(ctx, log, &run, domain.SyncStatusFailed, err)
		tracing.EndSpan(span, err)
		return run, err
	}
	if !locked {
		s.finish(ctx, log, &run, domain.SyncStatusSkipped, domain.ErrSyncInProgress)
		tracing.EndSpan(span, nil)
		return run, domain.ErrSyncInProgress
	}
	defer func() {
		if err := s.locker.ReleaseSync(context.WithoutCancel(ctx), slug, token); err != nil {
			log.Warn("release sync lock failed", zap.Error(err))
		}
	}()

	rows, err := s.compute(ctx, log, &run)
	if err == nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.ReplaceRows(ctx, tx, slug, rows); err != nil {
				return fmt.Errorf("replace rows: %w", err)
			}
			run.Details = syncDetails(rows)
			s.complete(&run, domain.SyncStatusSucceeded, nil)
			return s.repo.InsertSyncRun(ctx, tx, &run)
		})
	}
	if err != nil {
		s.finish(ctx, log, &run, domain.SyncStatusFailed, err)
		tracing.EndSpan(span, err)
		return run, err
	}

	if err := s.cache.Invalidate(ctx, slug); err != nil {
		log.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
	s.observe(ctx, log, run, rows)
	tracing.EndSpan(span, nil)
	return run, nil
}

func (s *Service) compute(ctx context.Context, log *zap.Logger, run *domain.SyncRun) (domain.Rows, error) {
	ctx, span := tracing.StartSpan(ctx, "hud.sync.compute")
	defer span.End()

	snap, err := s.source.Load(ctx, run.CommunitySlug)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return domain.Rows{}, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, run.CommunitySlug)
		}
		return domain.Rows{}, fmt.Errorf("load snapshot: %w", err)
	}

	cfg := s.analytics.Get()
	pop := analytics.Normalize(snap, run.StartedAt)
	report := analytics.BuildReport(pop, run.StartedAt, analytics.Options{
		WindowDays:       cfg.WindowDays,
		CohortMaxMonths:  cfg.CohortMaxMonths,
		GrowthCeilingPct: cfg.GrowthCeilingPct,
		MemberCeilingPct: cfg.MemberCeilingPct,
	})

	run.Period = datatypes.Date(report.Period)
	run.MemberCount = len(report.Members)

	s.metrics.RecordMembersNormalized(ctx, run.CommunitySlug, len(pop.Active)+len(pop.Churned)+len(pop.Cancelling))
	s.syncStats.SetMembers(run.CommunitySlug, "active", len(pop.Active))
	s.syncStats.SetMembers(run.CommunitySlug, "churned", len(pop.Churned))
	s.syncStats.SetMembers(run.CommunitySlug, "cancelling", len(pop.Cancelling))

	log.Debug("hud.sync.computed",
		zap.Int("members", run.MemberCount),
		zap.Int("cohorts", len(report.Cohorts)),
		zap.Int("months", len(report.Monthly)),
		zap.Time("fetched_at", snap.FetchedAt),
	)
	return buildRows(run.CommunitySlug, run.ID, report, s.clock.Now().UTC()), nil
}

func (s *Service) complete(run *domain.SyncRun, status string, err error) {
	run.Status = status
	run.FinishedAt = s.clock.Now().UTC()
	if err != nil {
		msg := strings.TrimSpace(err.Error())
		if len(msg) > maxRunErrorLength {
			msg = msg[:maxRunErrorLength]
		}
		run.Error = msg
	}
}

// finish records an unsuccessful run outside the sync transaction.
func (s *Service) finish(ctx context.Context, log *zap.Logger, run *domain.SyncRun, status string, cause error) {
	s.complete(run, status, cause)
	if err := s.repo.InsertSyncRun(context.WithoutCancel(ctx), s.db, run); err != nil {
		log.Error("record sync run failed", zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("status", status),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
	}
	if status == domain.SyncStatusSkipped {
		log.Info("hud.sync.finish", fields...)
	} else {
		log.Error("hud.sync.finish", append(fields, zap.Error(cause))...)
	}
	s.metrics.RecordSyncRun(ctx, run.CommunitySlug, status)
	s.syncStats.ObserveRun(run.CommunitySlug, status, run.FinishedAt.Sub(run.StartedAt), run.FinishedAt)
}

func (s *Service) observe(ctx context.Context, log *zap.Logger, run domain.SyncRun, rows domain.Rows) {
	counts := map[string]int{
		"hud_dashboard": 1,
		"hud_cohort":    len(rows.Cohorts),
		"hud_charts":    len(rows.Monthly),
		"hud_members":   len(rows.Members),
		"hud_chart_pie": len(rows.Pie),
	}
	for table, n := range counts {
		s.syncStats.AddRowsWritten(run.CommunitySlug, table, n)
	}
	s.metrics.RecordSyncRun(ctx, run.CommunitySlug, run.Status)
	s.syncStats.ObserveRun(run.CommunitySlug, run.Status, run.FinishedAt.Sub(run.StartedAt), run.FinishedAt)

	log.Info("hud.sync.finish",
		zap.String("status", run.Status),
		zap.Int("members", run.MemberCount),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
	)
}

func (s *Service) GetDashboard(ctx context.Context, community string, period string) (domain.Dashboard, error) {
	slug, err := domain.NormalizeCommunity(community)
	if err != nil {
		return domain.Dashboard{}, err
	}

	var at *time.Time
	period = strings.TrimSpace(period)
	if period != "" {
		parsed, err := time.Parse(periodLayout, period)
		if err != nil {
			return domain.Dashboard{}, domain.ErrInvalidPeriod
		}
		at = &parsed
	}

	var cached domain.Dashboard
	if s.cache.Get(ctx, slug, period, &cached) {
		return cached, nil
	}

	row, err := s.repo.FindDashboard(ctx, s.db, slug, at)
	if err != nil {
		return domain.Dashboard{}, err
	}
	if row == nil {
		return domain.Dashboard{}, domain.ErrNotFound
	}
	s.cache.Set(ctx, slug, period, row)
	return *row, nil
}

func (s *Service) ListCohorts(ctx context.Context, community string) ([]domain.Cohort, error) {
	slug, err := domain.NormalizeCommunity(community)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCohorts(ctx, s.db, slug)
}

func (s *Service) ListMonthly(ctx context.Context, community string) ([]domain.MonthlyChart, error) {
	slug, err := domain.NormalizeCommunity(community)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMonthly(ctx, s.db, slug)
}

func (s *Service) ListMembers(ctx context.Context, req domain.ListMembersRequest) (domain.ListMembersResponse, error) {
	slug, err := domain.NormalizeCommunity(req.Community)
	if err != nil {
		return domain.ListMembersResponse{}, err
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListMembersResponse{}, err
	}
	afterID := ""
	if cursor != nil {
		afterID = cursor.ID
	}

	limit := req.Limit()
	rows, err := s.repo.ListMembers(ctx, s.db, slug, afterID, limit+1)
	if err != nil {
		return domain.ListMembersResponse{}, err
	}
	members, pageInfo, err := pagination.Page(rows, limit, func(m domain.Member) string { return m.MemberID })
	if err != nil {
		return domain.ListMembersResponse{}, err
	}
	if members == nil {
		members = []domain.Member{}
	}
	return domain.ListMembersResponse{PageInfo: pageInfo, Members: members}, nil
}

func (s *Service) GetDistributions(ctx context.Context, community string) (domain.Distributions, error) {
	slug, err := domain.NormalizeCommunity(community)
	if err != nil {
		return domain.Distributions{}, err
	}
	slices, err := s.repo.ListPieSlices(ctx, s.db, slug)
	if err != nil {
		return domain.Distributions{}, err
	}

	out := domain.Distributions{
		Levels:   []domain.PieSlice{},
		Standing: []domain.PieSlice{},
		Renewals: []domain.PieSlice{},
	}
	for _, slice := range slices {
		switch slice.Chart {
		case domain.ChartLevels:
			out.Levels = append(out.Levels, slice)
		case domain.ChartStanding:
			out.Standing = append(out.Standing, slice)
		case domain.ChartRenewals:
			out.Renewals = append(out.Renewals, slice)
		}
	}
	return out, nil
}

func (s *Service) ListSyncRuns(ctx context.Context, community string, limit int) ([]domain.SyncRun, error) {
	slug, err := domain.NormalizeCommunity(community)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSyncRunLimit
	}
	if limit > maxSyncRunLimit {
		limit = maxSyncRunLimit
	}
	return s.repo.ListSyncRuns(ctx, s.db, slug, limit)
}

func syncDetails(rows domain.Rows) datatypes.JSON {
	raw, err := json.Marshal(map[string]int{
		"cohorts": len(rows.Cohorts),
		"monthly": len(rows.Monthly),
		"members": len(rows.Members),
		"pie":     len(rows.Pie),
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
