package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:rl:"

// The guessing surface is per-minute: how many codes can one client try
// against /validate before being slowed down.
const window = time.Minute

// Limiter counts events per client in a Redis sorted set, scored by
// nanosecond timestamp so the window slides instead of resetting.
type Limiter struct {
	Client *redis.Client
}

// Allow records an attempt for the client and reports whether it stayed
// within max attempts per minute.
func (l Limiter) Allow(ctx context.Context, client string, max int) (allowed bool, remaining int, reset time.Time, err error) {
	if l.Client == nil || max <= 0 {
		return true, max, time.Now().Add(window), nil
	}

	now := time.Now()
	key := keyPrefix + client

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%f", float64(now.Add(-window).UnixNano())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, now.Add(window), err
	}

	current := int(countCmd.Val())
	remaining = max - current
	if remaining < 0 {
		remaining = 0
	}
	return current <= max, remaining, now.Add(window), nil
}
