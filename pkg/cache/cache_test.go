package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRedisCacheFromClient(client, "test")
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", sample{Name: "a", Value: 1.5}, 0))

	var got sample
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, sample{Name: "a", Value: 1.5}, got)

	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "k"))
	assert.ErrorIs(t, mc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", "v", time.Second))
	var s string
	require.NoError(t, mc.Get(ctx, "k", &s))
	assert.Equal(t, "v", s)

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rc := setupTestRedis(t)

	require.NoError(t, rc.Set(ctx, "k", sample{Name: "b", Value: 2}, time.Minute))
	assert.True(t, mr.Exists("test:k"))

	var got sample
	require.NoError(t, rc.Get(ctx, "k", &got))
	assert.Equal(t, "b", got.Name)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, rc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestRedisCacheLock(t *testing.T) {
	ctx := context.Background()
	mr, rc := setupTestRedis(t)

	ok, err := rc.TryLock(ctx, "lock:x", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rc.TryLock(ctx, "lock:x", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = rc.TryLock(ctx, "lock:x", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, rc.Unlock(ctx, "lock:x"))
}

func TestLayeredCacheFallsBackToRedis(t *testing.T) {
	ctx := context.Background()
	_, rc := setupTestRedis(t)
	lc := NewLayeredCache(rc)
	defer lc.memCache.Close()

	require.NoError(t, rc.Set(ctx, "k", sample{Name: "l2"}, 0))

	var got sample
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "l2", got.Name)

	var raw []byte
	require.NoError(t, lc.memCache.Get(ctx, "k", &raw))
	assert.JSONEq(t, `{"name":"l2","value":0}`, string(raw))

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "fundamentals:AAPL", GenerateKey("fundamentals", "AAPL"))
	assert.Equal(t, "a:1:b", GenerateKeyWithParams("a", 1, "b"))
}
