package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/memberhud/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncTriggerLimiterDisabled(t *testing.T) {
	l, err := NewSyncTriggerLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, SyncTriggerRate: 1, SyncTriggerBurst: 1}}, nil)
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), "alpha")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestSyncTriggerLimiterRejectsInvalidBucket(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewSyncTriggerLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, SyncTriggerRate: 0, SyncTriggerBurst: 3}}, client)
	assert.Error(t, err)

	l, err := NewSyncTriggerLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, SyncTriggerRate: 0.5, SyncTriggerBurst: 3}}, client)
	require.NoError(t, err)
	assert.True(t, l.Enabled())
	assert.Equal(t, 12*time.Second, l.bucket.ttl)
}

func TestSyncTriggerKey(t *testing.T) {
	assert.Equal(t, "hud:sync:trigger:alpha", syncTriggerKey(" Alpha "))
}

func TestTokenBucketRequiresClient(t *testing.T) {
	var b *tokenBucket
	res, err := b.take(context.Background(), "k")
	assert.ErrorIs(t, err, errLimiterNotConfigured)
	assert.False(t, res.Allowed)

	_, err = newTokenBucket(nil, 1, 1)
	assert.ErrorIs(t, err, errLimiterNotConfigured)
}

func TestTokenBucketResult(t *testing.T) {
	b := &tokenBucket{rate: 0.5, burst: 3}
	at := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	granted := b.result(true, 1500, at)
	assert.True(t, granted.Allowed)
	assert.Equal(t, 3, granted.Limit)
	assert.Equal(t, 1, granted.Remaining)
	assert.Zero(t, granted.RetryAfter)
	assert.Equal(t, at.Add(3*time.Second), granted.ResetTime)

	denied := b.result(false, 250, at)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 1500*time.Millisecond, denied.RetryAfter)
	assert.Equal(t, at.Add(5500*time.Millisecond), denied.ResetTime)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, bucketTTL(0, 1))
	assert.Equal(t, 12*time.Second, bucketTTL(0.5, 3))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}
