package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

func (c Config) serviceName() string {
	if name := strings.TrimSpace(c.ServiceName); name != "" {
		return name
	}
	return "memberhud"
}

func (c Config) environment() string {
	if env := strings.TrimSpace(c.Environment); env != "" {
		return env
	}
	return "unknown"
}

// Metrics exposes application-level instruments.
type Metrics struct {
	syncRuns          metric.Int64Counter
	membersNormalized metric.Int64Counter
	cacheLookups      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(cfg.serviceName())

	syncRuns, err := meter.Int64Counter("memberhud_sync_runs_total")
	if err != nil {
		return nil, err
	}
	membersNormalized, err := meter.Int64Counter("memberhud_members_normalized_total")
	if err != nil {
		return nil, err
	}
	cacheLookups, err := meter.Int64Counter("memberhud_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		syncRuns:          syncRuns,
		membersNormalized: membersNormalized,
		cacheLookups:      cacheLookups,
	}, nil
}

// RecordSyncRun counts a finished sync attempt.
func (m *Metrics) RecordSyncRun(ctx context.Context, community, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("community", strings.TrimSpace(community)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.syncRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMembersNormalized counts members produced by the normalizer.
func (m *Metrics) RecordMembersNormalized(ctx context.Context, community string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("community", strings.TrimSpace(community)))
	m.membersNormalized.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordCacheLookup counts read cache hits and misses.
func (m *Metrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	attrs := FilterAttributes(
		attribute.String("cache", strings.TrimSpace(cache)),
		attribute.String("result", result),
	)
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"community":   {},
	"status":      {},
	"reason":      {},
	"endpoint":    {},
	"status_code": {},
	"job":         {},
	"cache":       {},
	"result":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
