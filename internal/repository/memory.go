package repository

import (
	"context"
	"sync"
	"time"

	"carebook/internal/models"
)

type memoryEntry struct {
	summary   *models.BillingSummary
	expiresAt time.Time
}

// MemorySummaryCache is the in-process fallback cache.
type MemorySummaryCache struct {
	entries sync.Map
	ttl     time.Duration
}

func NewMemorySummaryCache(ttl time.Duration) *MemorySummaryCache {
	return &MemorySummaryCache{ttl: ttl}
}

func (m *MemorySummaryCache) Get(ctx context.Context, key string) (*models.BillingSummary, error) {
	val, ok := m.entries.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if m.ttl > 0 && time.Now().After(entry.expiresAt) {
		m.entries.Delete(key)
		return nil, nil
	}
	return entry.summary, nil
}

func (m *MemorySummaryCache) Set(ctx context.Context, key string, summary *models.BillingSummary) error {
	m.entries.Store(key, memoryEntry{summary: summary, expiresAt: time.Now().Add(m.ttl)})
	return nil
}

func (m *MemorySummaryCache) Invalidate(ctx context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}
