package health

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/khc-home/storefront/internal/store"
)

// Probe implements Checker against the configured blob store and an optional
// Redis client.
type Probe struct {
	Store store.Adapter
	Redis *redis.Client
}

// PingStore verifies the blob store answers reads. A missing key still proves
// the backend is reachable.
func (p Probe) PingStore(ctx context.Context, timeout time.Duration) error {
	if p.Store == nil {
		return errors.New("store not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := p.Store.Load(ctx, store.KeyCommerceConfig); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// PingRedis verifies connectivity when a Redis client is configured.
func (p Probe) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}
