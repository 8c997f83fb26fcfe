package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores screen name to user id mappings.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryCache is a bounded LRU with a per-entry TTL.
type MemoryCache struct {
	entries *expirable.LRU[string, string]
}

// NewMemoryCache returns a cache holding at most capacity entries. A zero ttl keeps entries until evicted.
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryCache{entries: expirable.NewLRU[string, string](capacity, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := c.entries.Get(key)
	return value, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.entries.Add(key, value)
	return nil
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}
