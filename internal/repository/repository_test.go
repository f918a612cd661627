package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"carebook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary() *models.BillingSummary {
	return &models.BillingSummary{
		LineItems: []models.LineItem{{
			Code:      models.LineItemCodeBooking,
			Date:      "2026-08-03T09:00:00+00:00",
			ShortDate: "Aug 03",
			StartTime: "9:00am",
			EndTime:   "5:00pm",
			Hours:     8,
			Amount:    "200.00",
		}},
		BookingFee:    "20.00",
		ProcessingFee: "6.68",
		TotalPayment:  "226.68",
		Payout:        "200.00",
	}
}

func newRedisCache(t *testing.T) (*RedisSummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSummaryCache(client, 30*time.Minute), mr
}

func TestRedisSummaryCache(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	got, err := cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil, nil")

	require.NoError(t, cache.Set(ctx, "quote-1", testSummary()))

	got, err = cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "226.68", got.TotalPayment)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "200.00", got.LineItems[0].Amount)

	// TTL expiry
	mr.FastForward(31 * time.Minute)
	got, err = cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSummaryCacheInvalidate(t *testing.T) {
	cache, _ := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "quote-1", testSummary()))
	require.NoError(t, cache.Invalidate(ctx, "quote-1"))

	got, err := cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSummaryCacheErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisSummaryCache(client, time.Minute)
	ctx := context.Background()

	mr.Close()
	_, err := cache.Get(ctx, "quote-1")
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, "quote-1", testSummary()))
}

func TestMemorySummaryCache(t *testing.T) {
	cache := NewMemorySummaryCache(time.Minute)
	ctx := context.Background()

	got, err := cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, "quote-1", testSummary()))
	got, err = cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "200.00", got.Payout)

	require.NoError(t, cache.Invalidate(ctx, "quote-1"))
	got, err = cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailoverSummaryCacheFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	primary := NewRedisSummaryCache(client, time.Minute)
	fallback := NewMemorySummaryCache(time.Minute)
	logger := zerolog.New(io.Discard)
	cache := NewFailoverSummaryCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "quote-1", testSummary()))

	// Primary dies; reads keep working from the fallback.
	mr.Close()
	got, err := cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "226.68", got.TotalPayment)
	assert.True(t, cache.isDown.Load())

	// While down, the primary is not retried before the recovery interval.
	got, err = cache.Get(ctx, "quote-1")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestFailoverSummaryCacheRecovers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	primary := NewRedisSummaryCache(client, time.Minute)
	fallback := NewMemorySummaryCache(time.Minute)
	logger := zerolog.New(io.Discard)
	cache := NewFailoverSummaryCache(primary, fallback, &logger)
	ctx := context.Background()

	cache.isDown.Store(true)
	cache.mu.Lock()
	cache.lastCheck = time.Now().Add(-2 * time.Minute)
	cache.mu.Unlock()

	require.NoError(t, cache.Set(ctx, "quote-1", testSummary()))
	assert.False(t, cache.isDown.Load(), "primary retried after recovery interval")

	got, err := primary.Get(ctx, "quote-1")
	require.NoError(t, err)
	assert.NotNil(t, got, "write reached the recovered primary")
}
