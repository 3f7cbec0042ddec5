package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/memberhud/internal/config"
)

const keySyncTrigger = "hud:sync:trigger:%s"

// SyncTriggerLimiter bounds how often a community's sync can be triggered by
// hand. A nil limiter allows everything.
type SyncTriggerLimiter struct {
	bucket *tokenBucket
}

// NewSyncTriggerLimiter returns nil when rate limiting is off or redis is not
// configured.
func NewSyncTriggerLimiter(cfg config.Config, client *redis.Client) (*SyncTriggerLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return nil, nil
	}
	bucket, err := newTokenBucket(client, limitCfg.SyncTriggerRate, limitCfg.SyncTriggerBurst)
	if err != nil {
		return nil, err
	}
	return &SyncTriggerLimiter{bucket: bucket}, nil
}

func (l *SyncTriggerLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *SyncTriggerLimiter) Allow(ctx context.Context, community string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.take(ctx, syncTriggerKey(community))
}

func syncTriggerKey(community string) string {
	return fmt.Sprintf(keySyncTrigger, strings.ToLower(strings.TrimSpace(community)))
}
