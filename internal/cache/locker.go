package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const keySyncLock = "hud:sync:lock:%s"

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// Enabled reports whether locks are backed by redis. A disabled locker always
// grants the lock.
func (l *Locker) Enabled() bool {
	return l != nil && l.client != nil
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if !l.Enabled() {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// TryLockSync takes the per-community sync lock.
func (l *Locker) TryLockSync(ctx context.Context, community string, ttl time.Duration) (string, bool, error) {
	return l.TryLock(ctx, SyncLockKey(community), ttl)
}

func (l *Locker) ReleaseSync(ctx context.Context, community, token string) error {
	return l.Release(ctx, SyncLockKey(community), token)
}

func SyncLockKey(community string) string {
	return fmt.Sprintf(keySyncLock, community)
}
