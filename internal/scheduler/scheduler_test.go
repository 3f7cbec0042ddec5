package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/memberhud/internal/clock"
	hud "github.com/smallbiznis/memberhud/internal/hud/domain"
	obsmetrics "github.com/smallbiznis/memberhud/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSyncer struct {
	mu     sync.Mutex
	calls  []string
	errors map[string]error
}

func (f *fakeSyncer) Sync(_ context.Context, community string) (hud.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, community)
	if err := f.errors[community]; err != nil {
		return hud.SyncRun{CommunitySlug: community, Status: hud.SyncStatusFailed}, err
	}
	return hud.SyncRun{CommunitySlug: community, Status: hud.SyncStatusSucceeded}, nil
}

func newTestScheduler(t *testing.T, syncer hud.Syncer, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	s, err := New(Params{
		Log:     zap.NewNop(),
		Syncer:  syncer,
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)),
		Metrics: obsmetrics.Scheduler(),
		Config:  cfg,
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "memberhud",
		Environment: "test",
	})

	s := newTestScheduler(t, &fakeSyncer{}, Config{})
	err := s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "memberhud",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "memberhud_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "memberhud",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "memberhud_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunOnceSyncsEveryCommunity(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "memberhud", Environment: "test"})

	syncer := &fakeSyncer{errors: map[string]error{
		"beta":  hud.ErrSyncInProgress,
		"gamma": errors.New("snapshot decode failed"),
	}}
	s := newTestScheduler(t, syncer, Config{Communities: []string{"alpha", "beta", "gamma"}})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gamma")
	assert.NotContains(t, err.Error(), "beta")
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, syncer.calls)

	labels := map[string]string{
		"service":  "memberhud",
		"env":      "test",
		"job":      jobHUDSync,
		"resource": "communities",
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "memberhud_scheduler_batch_processed_total", labels))
}

func TestRunOnceWithoutCommunitiesIsNoop(t *testing.T) {
	syncer := &fakeSyncer{}
	s := newTestScheduler(t, syncer, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, syncer.calls)
}

func TestSyncCommunitiesJobStopsOnCancel(t *testing.T) {
	syncer := &fakeSyncer{}
	s := newTestScheduler(t, syncer, Config{Communities: []string{"alpha", "beta"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SyncCommunitiesJob(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, syncer.calls)
}

func TestProvideConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	obsmetrics.ResetSchedulerMetricsForTest()
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
