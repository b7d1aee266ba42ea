package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:lock:"

// The release only deletes the key when the token still matches, so a
// holder whose TTL lapsed cannot release a lock someone else re-acquired.
var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Locker serialises work across replicas with a Redis SETNX lock.
type Locker struct {
	Client *redis.Client
	Retry  time.Duration
}

// WithLock runs fn while holding the named lock, releasing it afterwards
// even when fn fails. Acquisition retries until the context is cancelled.
func (l *Locker) WithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	if l.Client == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}

	key := keyPrefix + name
	token := uuid.NewString()
	for {
		ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	// release on a fresh context so a cancelled fn still unlocks
	defer func() {
		_ = releaseScript.Run(context.Background(), l.Client, []string{key}, token).Err()
	}()
	return fn(ctx)
}
