package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Bucket state is kept in thousandths of a token: redis truncates Lua numbers
// to integers when it replies. ARGV[2] is the refill rate in tokens per second,
// which equals milli-tokens per millisecond.
const syncBucketScript = `
local capacity = tonumber(ARGV[1]) * 1000
local refill = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "milli", "at")
local milli = tonumber(state[1]) or capacity
local at = tonumber(state[2]) or now
if now > at then
  milli = math.min(capacity, milli + (now - at) * refill)
end

local granted = 0
if milli >= 1000 then
  granted = 1
  milli = milli - 1000
end

redis.call("HSET", KEYS[1], "milli", milli, "at", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {granted, math.floor(milli), now}
`

var errLimiterNotConfigured = errors.New("rate limiter not configured")

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// tokenBucket spends one token per sync trigger. Rate and burst are fixed for
// the lifetime of the bucket.
type tokenBucket struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
	ttl    time.Duration
}

func newTokenBucket(client *redis.Client, rate float64, burst int) (*tokenBucket, error) {
	if client == nil {
		return nil, errLimiterNotConfigured
	}
	if rate <= 0 || burst <= 0 {
		return nil, fmt.Errorf("sync trigger rate limit must be positive: rate=%v burst=%d", rate, burst)
	}
	return &tokenBucket{
		client: client,
		script: redis.NewScript(syncBucketScript),
		rate:   rate,
		burst:  burst,
		ttl:    bucketTTL(rate, burst),
	}, nil
}

func (b *tokenBucket) take(ctx context.Context, key string) (*RateLimitResult, error) {
	if b == nil || b.client == nil {
		return &RateLimitResult{}, errLimiterNotConfigured
	}
	if key == "" {
		return &RateLimitResult{}, errors.New("rate limiter key is empty")
	}

	reply, err := b.script.Run(ctx, b.client, []string{key}, b.burst, b.rate, b.ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return &RateLimitResult{}, err
	}
	if len(reply) != 3 {
		return &RateLimitResult{}, fmt.Errorf("token bucket replied with %d values", len(reply))
	}
	return b.result(reply[0] == 1, reply[1], time.UnixMilli(reply[2])), nil
}

// result converts the bucket state after a take into response headers data.
// ResetTime is when the bucket is full again.
func (b *tokenBucket) result(granted bool, milliLeft int64, at time.Time) *RateLimitResult {
	res := &RateLimitResult{
		Allowed:   granted,
		Limit:     b.burst,
		Remaining: int(milliLeft / 1000),
		ResetTime: at.Add(b.refillTime(int64(b.burst)*1000 - milliLeft)),
	}
	if !granted {
		res.RetryAfter = b.refillTime(1000 - milliLeft)
	}
	return res
}

func (b *tokenBucket) refillTime(milli int64) time.Duration {
	if milli <= 0 {
		return 0
	}
	return time.Duration(float64(milli) / b.rate * float64(time.Millisecond))
}

// bucketTTL keeps idle buckets around for twice the time a full refill takes.
func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Ceil(float64(burst) / rate * 2)
	return time.Duration(math.Max(seconds, 1)) * time.Second
}
