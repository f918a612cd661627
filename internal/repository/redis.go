// Package repository caches computed billing summaries. The engine is
// referentially transparent, so a summary keyed by its full input can be
// served from cache indefinitely; invalidation only happens when a
// booking's schedule or exceptions change.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carebook/internal/config"
	"carebook/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{client: client, ttl: ttl}
}

func summaryKey(key string) string {
	return fmt.Sprintf("billing_summary:%s", key)
}

// Get returns the cached summary, or nil on a miss.
func (r *RedisSummaryCache) Get(ctx context.Context, key string) (*models.BillingSummary, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, summaryKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary from redis: %w", err)
	}

	var summary models.BillingSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &summary, nil
}

func (r *RedisSummaryCache) Set(ctx context.Context, key string, summary *models.BillingSummary) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := r.client.Set(ctx, summaryKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set summary in redis: %w", err)
	}
	return nil
}

func (r *RedisSummaryCache) Invalidate(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, summaryKey(key)).Err(); err != nil {
		return fmt.Errorf("delete summary from redis: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
