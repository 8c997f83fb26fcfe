package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(2, 0)

	require.NoError(t, cache.Set(ctx, "a", "1"))
	require.NoError(t, cache.Set(ctx, "b", "2"))
	_, ok, _ := cache.Get(ctx, "a")
	require.True(t, ok)
	require.NoError(t, cache.Set(ctx, "c", "3"))

	_, ok, _ = cache.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	value, ok, _ := cache.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "1", value)
	assert.Equal(t, 2, cache.Len())
}

func TestMemoryCacheExpiresEntries(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(4, 50*time.Millisecond)

	require.NoError(t, cache.Set(ctx, "a", "1"))
	value, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", value)

	require.Eventually(t, func() bool {
		_, ok, _ := cache.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCacheZeroCapacityHoldsOneEntry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0, 0)
	require.NoError(t, cache.Set(ctx, "a", "1"))
	require.NoError(t, cache.Set(ctx, "b", "2"))

	_, ok, _ := cache.Get(ctx, "a")
	assert.False(t, ok)
	value, ok, _ := cache.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", value)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(1, 0)
	require.NoError(t, cache.Set(ctx, "a", "1"))
	require.NoError(t, cache.Set(ctx, "a", "2"))
	value, ok, _ := cache.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "2", value)
	assert.Equal(t, 1, cache.Len())
}

type fakeRedisStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeRedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedisStore) IdentityKey(screenName string) string {
	return "dm:identity:" + screenName
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeRedisStore()
	cache := NewRedisCache(store, time.Hour)

	_, ok, err := cache.Get(ctx, "jack")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "jack", "12"))
	assert.Equal(t, time.Hour, store.ttls["dm:identity:jack"])

	value, ok, err := cache.Get(ctx, "jack")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "12", value)

	store.getErr = errors.New("connection reset")
	_, _, err = cache.Get(ctx, "jack")
	assert.Error(t, err)
}
