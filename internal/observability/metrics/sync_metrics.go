package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SyncStatusSucceeded = "succeeded"
	SyncStatusFailed    = "failed"
	SyncStatusSkipped   = "skipped"
)

// SyncMetrics tracks HUD sync runs per community.
type SyncMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	members     *prometheus.GaugeVec
	rowsWritten *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// SyncWithConfig returns the singleton sync metrics registry.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

// NewSyncMetricsForTest builds sync metrics against a private registry.
func NewSyncMetricsForTest(registerer prometheus.Registerer) *SyncMetrics {
	return newSyncMetrics(registerer, Config{Environment: "test"})
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "memberhud_sync_runs_total",
		Help:        "HUD sync runs by community and outcome.",
		ConstLabels: labels,
	}, []string{"community", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "memberhud_sync_duration_seconds",
		Help:        "HUD sync latency from snapshot load to commit.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		ConstLabels: labels,
	}, []string{"community"})
	members := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "memberhud_sync_members",
		Help:        "Members seen in the last sync by listing.",
		ConstLabels: labels,
	}, []string{"community", "listing"})
	rowsWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "memberhud_sync_rows_written_total",
		Help:        "Rows written per HUD table.",
		ConstLabels: labels,
	}, []string{"community", "table"})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "memberhud_sync_last_success_timestamp_seconds",
		Help:        "Unix time of the last successful sync.",
		ConstLabels: labels,
	}, []string{"community"})

	registerer.MustRegister(runs, duration, members, rowsWritten, lastSuccess)

	return &SyncMetrics{
		runs:        runs,
		duration:    duration,
		members:     members,
		rowsWritten: rowsWritten,
		lastSuccess: lastSuccess,
	}
}

// ObserveRun records the outcome and latency of one sync.
func (m *SyncMetrics) ObserveRun(community, status string, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(community, status).Inc()
	if status == SyncStatusSkipped {
		return
	}
	m.duration.WithLabelValues(community).Observe(duration.Seconds())
	if status == SyncStatusSucceeded {
		m.lastSuccess.WithLabelValues(community).Set(float64(finishedAt.Unix()))
	}
}

// SetMembers records the size of one listing.
func (m *SyncMetrics) SetMembers(community, listing string, count int) {
	if m == nil {
		return
	}
	m.members.WithLabelValues(community, listing).Set(float64(count))
}

// AddRowsWritten counts rows inserted into a HUD table.
func (m *SyncMetrics) AddRowsWritten(community, table string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.rowsWritten.WithLabelValues(community, table).Add(float64(count))
}
