package store

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// Redis stores each blob under a prefixed string key.
type Redis struct {
	Client *redis.Client
	Prefix string
}

// Load implements Adapter.
func (r Redis) Load(ctx context.Context, key string) ([]byte, error) {
	if r.Client == nil {
		return nil, errors.New("store: redis client not configured")
	}
	raw, err := r.Client.Get(ctx, r.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: redis get %s: %w", key, err)
	}
	return raw, nil
}

// Save implements Adapter.
func (r Redis) Save(ctx context.Context, key string, blob []byte) error {
	if r.Client == nil {
		return errors.New("store: redis client not configured")
	}
	if err := r.Client.Set(ctx, r.redisKey(key), blob, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", key, err)
	}
	return nil
}

func (r Redis) redisKey(key string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "storefront:blob:"
	}
	return prefix + key
}
