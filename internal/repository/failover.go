package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"carebook/internal/models"

	"github.com/rs/zerolog"
)

// SummaryCache stores computed billing summaries keyed by quote input.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*models.BillingSummary, error)
	Set(ctx context.Context, key string, summary *models.BillingSummary) error
	Invalidate(ctx context.Context, key string) error
}

// FailoverSummaryCache wraps a primary cache (Redis) with an in-memory
// fallback. After a primary failure it serves from the fallback and
// probes the primary again after a recovery interval.
type FailoverSummaryCache struct {
	primary  SummaryCache
	fallback SummaryCache
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

const recoveryInterval = time.Minute

func NewFailoverSummaryCache(primary, fallback SummaryCache, logger *zerolog.Logger) *FailoverSummaryCache {
	return &FailoverSummaryCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// shouldTryPrimary reports whether the primary should be used, flipping
// the down-flag back once the recovery interval has passed.
func (f *FailoverSummaryCache) shouldTryPrimary() bool {
	if !f.isDown.Load() {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) >= recoveryInterval {
		f.lastCheck = time.Now()
		f.isDown.Store(false)
		f.logger.Info().Msg("retrying primary summary cache after recovery interval")
		return true
	}
	return false
}

func (f *FailoverSummaryCache) markDown(err error, op string) {
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
	f.isDown.Store(true)
	f.logger.Error().Err(err).Str("op", op).Msg("primary summary cache failed, falling back to memory")
}

func (f *FailoverSummaryCache) Get(ctx context.Context, key string) (*models.BillingSummary, error) {
	if f.shouldTryPrimary() {
		summary, err := f.primary.Get(ctx, key)
		if err == nil {
			return summary, nil
		}
		f.markDown(err, "get")
	}
	return f.fallback.Get(ctx, key)
}

func (f *FailoverSummaryCache) Set(ctx context.Context, key string, summary *models.BillingSummary) error {
	if f.shouldTryPrimary() {
		if err := f.primary.Set(ctx, key, summary); err != nil {
			f.markDown(err, "set")
		}
	}
	return f.fallback.Set(ctx, key, summary)
}

func (f *FailoverSummaryCache) Invalidate(ctx context.Context, key string) error {
	if f.shouldTryPrimary() {
		if err := f.primary.Invalidate(ctx, key); err != nil {
			f.markDown(err, "invalidate")
		}
	}
	return f.fallback.Invalidate(ctx, key)
}
