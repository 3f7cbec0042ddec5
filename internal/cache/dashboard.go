package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/memberhud/internal/config"
	"github.com/smallbiznis/memberhud/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	keyDashboard       = "hud:dashboard:%s:%s"
	keyDashboardPrefix = "hud:dashboard:%s:*"
	latestPeriod       = "latest"
	cacheName          = "dashboard"
	scanBatch          = 100
)

// DashboardCache keeps serialized dashboard rows keyed by community and
// period.
type DashboardCache struct {
	client  *redis.Client
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewDashboardCache(client *redis.Client, cfg config.Config, log *zap.Logger, m *metrics.Metrics) *DashboardCache {
	ttl := cfg.Redis.DashboardCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardCache{
		client:  client,
		ttl:     ttl,
		log:     log.Named("cache.dashboard"),
		metrics: m,
	}
}

func (c *DashboardCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes a cached entry into dst. It reports false on a miss and on any
// redis or decode failure.
func (c *DashboardCache) Get(ctx context.Context, community, period string, dst interface{}) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, DashboardKey(community, period)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("dashboard cache read failed", zap.String("community", community), zap.Error(err))
		}
		c.metrics.RecordCacheLookup(ctx, cacheName, false)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("dashboard cache entry is corrupt", zap.String("community", community), zap.Error(err))
		c.metrics.RecordCacheLookup(ctx, cacheName, false)
		return false
	}
	c.metrics.RecordCacheLookup(ctx, cacheName, true)
	return true
}

func (c *DashboardCache) Set(ctx context.Context, community, period string, value interface{}) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("dashboard cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, DashboardKey(community, period), raw, c.ttl).Err(); err != nil {
		c.log.Warn("dashboard cache write failed", zap.String("community", community), zap.Error(err))
	}
}

// Invalidate drops every cached period of the community.
func (c *DashboardCache) Invalidate(ctx context.Context, community string) error {
	if !c.Enabled() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, fmt.Sprintf(keyDashboardPrefix, community), scanBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func DashboardKey(community, period string) string {
	if period == "" {
		period = latestPeriod
	}
	return fmt.Sprintf(keyDashboard, community, period)
}
