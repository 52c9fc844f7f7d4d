package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/pkg/cache"
)

func backends(t *testing.T) map[string]cache.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	mr2 := miniredis.RunT(t)
	rc2 := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr2.Addr()}), "test")
	return map[string]cache.Service{
		"memory":  mem,
		"redis":   rc,
		"layered": cache.NewLayeredCache(rc2),
	}
}

func TestFundamentalsCacheGetPut(t *testing.T) {
	ctx := context.Background()
	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fc := NewFundamentalsCache(store)

			_, ok, err := fc.Get(ctx, "AAPL")
			require.NoError(t, err)
			assert.False(t, ok)

			snap := models.FundamentalsSnapshot{PERatio: models.Float(18), EPS: models.Float(6.1), FetchedAt: fetched}
			require.NoError(t, fc.Put(ctx, " aapl ", snap))

			got, ok, err := fc.Get(ctx, "AAPL")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "AAPL", got.Symbol)
			assert.Equal(t, 18.0, *got.PERatio)
			assert.Equal(t, 6.1, *got.EPS)
			assert.Nil(t, got.MarketCap)
			assert.True(t, fetched.Equal(got.FetchedAt))
		})
	}
}

func TestFundamentalsCachePutReplaces(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fc := NewFundamentalsCache(store)
			require.NoError(t, fc.Put(ctx, "MSFT", models.FundamentalsSnapshot{PERatio: models.Float(30), EPS: models.Float(9)}))
			require.NoError(t, fc.Put(ctx, "MSFT", models.FundamentalsSnapshot{PERatio: models.Float(20)}))

			got, ok, err := fc.Get(ctx, "MSFT")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 20.0, *got.PERatio)
			assert.Nil(t, got.EPS, "replace must not merge fields from the prior snapshot")
		})
	}
}

func TestFundamentalsCacheRejectsEmptySymbol(t *testing.T) {
	fc := NewFundamentalsCache(cache.NewMemoryCache())
	_, _, err := fc.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, domrepo.ErrNoSymbol)
	assert.ErrorIs(t, fc.Put(context.Background(), "", models.FundamentalsSnapshot{}), domrepo.ErrNoSymbol)
}

func TestFundamentalsCacheConcurrentSameSymbol(t *testing.T) {
	ctx := context.Background()
	fc := NewFundamentalsCache(cache.NewMemoryCache())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		pe := float64(i)
		go func() {
			defer wg.Done()
			_ = fc.Put(ctx, "TSLA", models.FundamentalsSnapshot{PERatio: models.Float(pe), EPS: models.Float(pe)})
		}()
		go func() {
			defer wg.Done()
			got, ok, err := fc.Get(ctx, "TSLA")
			if err == nil && ok {
				// a reader sees one whole snapshot, never a mix
				assert.Equal(t, *got.PERatio, *got.EPS)
			}
		}()
	}
	wg.Wait()

	_, ok, err := fc.Get(ctx, "TSLA")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFundamentalsKeys(t *testing.T) {
	assert.Equal(t, "fundamentals:AAPL", FundamentalsKey("AAPL"))
	assert.Equal(t, "lock:fundamentals:AAPL", FundamentalsLockKey("AAPL"))
}

type recordingPublisher struct {
	topic string
	key   []byte
	value interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func TestKafkaRefreshPublisher(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewKafkaRefreshPublisher(rec, "fundamentals.refresh")
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, p.RequestRefresh(context.Background(), "nvda"))
	assert.Equal(t, "fundamentals.refresh", rec.topic)
	assert.Equal(t, "NVDA", string(rec.key))
	assert.Equal(t, models.FundamentalsRefreshRequest{Symbol: "NVDA", RequestedAt: 1700000000}, rec.value)

	assert.ErrorIs(t, p.RequestRefresh(context.Background(), ""), domrepo.ErrNoSymbol)
}

func TestReverseCandles(t *testing.T) {
	c := []models.Candle{{Close: 3}, {Close: 2}, {Close: 1}}
	reverseCandles(c)
	assert.Equal(t, []float64{1, 2, 3}, []float64{c[0].Close, c[1].Close, c[2].Close})
}
