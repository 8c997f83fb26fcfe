package identity

import (
	"context"
	"time"

	pkgredis "github.com/angelmondragon/dmmedia/pkg/redis"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	IdentityKey(screenName string) string
}

// RedisCache shares lookups across processes through redis.
type RedisCache struct {
	store redisStore
	ttl   time.Duration
}

func NewRedisCache(store redisStore, ttl time.Duration) *RedisCache {
	return &RedisCache{store: store, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.store.Get(ctx, c.store.IdentityKey(key))
	if err != nil {
		if pkgredis.IsMiss(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.store.Set(ctx, c.store.IdentityKey(key), value, c.ttl)
}
