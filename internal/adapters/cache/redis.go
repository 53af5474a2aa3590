package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tablepick/topdish/internal/domain/model"
)

const redisKeyPrefix = "topdish:dishstats:"

// RedisBackend implements Backend on Redis so multiple service instances
// share one stats cache.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis at addr and verifies the connection.
func NewRedisBackend(ctx context.Context, addr string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisBackend{client: client}, nil
}

// Get returns cached stats; expiry is handled by Redis TTLs.
func (b *RedisBackend) Get(ctx context.Context, dishID string) (model.DishStats, bool, error) {
	raw, err := b.client.Get(ctx, redisKeyPrefix+dishID).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.DishStats{}, false, nil
	}
	if err != nil {
		return model.DishStats{}, false, fmt.Errorf("redis get: %w", err)
	}
	var stats model.DishStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return model.DishStats{}, false, fmt.Errorf("decode cached stats: %w", err)
	}
	return stats, true, nil
}

// Set stores stats with expiry.
func (b *RedisBackend) Set(ctx context.Context, dishID string, stats model.DishStats, ttl time.Duration) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := b.client.Set(ctx, redisKeyPrefix+dishID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops entries.
func (b *RedisBackend) Invalidate(ctx context.Context, dishIDs ...string) error {
	if len(dishIDs) == 0 {
		return nil
	}
	keys := make([]string, len(dishIDs))
	for i, id := range dishIDs {
		keys[i] = redisKeyPrefix + id
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
