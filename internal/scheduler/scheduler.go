package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/memberhud/internal/clock"
	hud "github.com/smallbiznis/memberhud/internal/hud/domain"
	obsmetrics "github.com/smallbiznis/memberhud/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobHUDSync = "hud_sync"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log     *zap.Logger
	Syncer  hud.Syncer
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
	Config  Config                       `optional:"true"`
}

// Scheduler periodically syncs every configured community.
type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	syncer  hud.Syncer
	metrics *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Syncer == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		syncer:  p.Syncer,
		metrics: m,
	}, nil
}

// runJob runs fn under a soft timeout. A timed out job is logged and counted
// but does not fail the run loop.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	s.metrics.AddBatchProcessed(name, "communities", run.processedCount)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	if len(s.cfg.Communities) == 0 {
		return nil
	}
	return s.runJob(parent, jobHUDSync, len(s.cfg.Communities), s.cfg.JobTimeout, s.SyncCommunitiesJob)
}

// SyncCommunitiesJob syncs each configured community in turn. A community
// already being synced elsewhere is skipped.
func (s *Scheduler) SyncCommunitiesJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, jobHUDSync, len(s.cfg.Communities))
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	var jobErr error
	for _, community := range s.cfg.Communities {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}

		syncRun, err := s.syncer.Sync(ctx, community)
		switch {
		case errors.Is(err, hud.ErrSyncInProgress):
			run.IncSkipped()
			s.logger(s.withLogContext(ctx, community)).Info("scheduler.sync.skipped",
				zap.String("job", jobHUDSync),
				zap.String("reason", "in_progress"),
			)
		case err != nil:
			s.logSchedulerError(ctx, run, "scheduler.sync.failed", jobHUDSync, community, err,
				zap.String("sync_run_id", syncRun.ID.String()),
			)
			jobErr = errors.Join(jobErr, fmt.Errorf("%s: %w", community, err))
		default:
			run.AddProcessed(1)
		}
	}
	return jobErr
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
