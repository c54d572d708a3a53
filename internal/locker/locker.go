// Package locker guards the reconciliation sweeps against overlapping
// runs across scheduler instances.
package locker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/shockvaluemedia/directfanz/internal/config"
)

const keySweepLock = "billing:sweep:lock:%s"

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker is a redis SETNX lock with fenced release. A nil Locker means
// locking is disabled and every TrySweep acquires immediately, which is
// the single-instance deployment mode.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func New(cfg config.Config) *Locker {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// TrySweep acquires the named sweep's lock. The returned token must be
// passed to Release; an empty ok result means another instance holds it.
func (l *Locker) TrySweep(ctx context.Context, sweep string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", true, nil
	}
	return l.tryLock(ctx, fmt.Sprintf(keySweepLock, sweep), ttl)
}

// ReleaseSweep releases the named sweep's lock if the token still owns it.
func (l *Locker) ReleaseSweep(ctx context.Context, sweep, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.release(ctx, fmt.Sprintf(keySweepLock, sweep), token)
}

func (l *Locker) tryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
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

func (l *Locker) release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
