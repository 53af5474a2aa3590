// Package cache provides a bounded-staleness cache of derived dish stats.
// Aggregates stay recomputable from the store at any time; the cache only
// trims read amplification on hot dishes.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/pkg/metrics"
)

// DefaultTTL bounds the staleness of a cached aggregate.
const DefaultTTL = 30 * time.Second

// Backend stores serialized dish stats with per-entry expiry.
type Backend interface {
	Get(ctx context.Context, dishID string) (model.DishStats, bool, error)
	Set(ctx context.Context, dishID string, stats model.DishStats, ttl time.Duration) error
	Invalidate(ctx context.Context, dishIDs ...string) error
	Close() error
}

// ComputeFunc recomputes the stats of one dish from the store.
type ComputeFunc func(ctx context.Context, dishID string) (model.DishStats, error)

// Option applies a configuration option to the ReadThrough cache.
type Option func(*ReadThrough)

// WithTTL sets the staleness bound.
func WithTTL(ttl time.Duration) Option {
	return func(c *ReadThrough) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// ReadThrough serves dish stats from the backend, collapsing concurrent
// recomputations of the same dish into one store read.
type ReadThrough struct {
	backend Backend
	compute ComputeFunc
	ttl     time.Duration
	group   singleflight.Group
}

// NewReadThrough creates a read-through cache with configuration options.
func NewReadThrough(backend Backend, compute ComputeFunc, opts ...Option) *ReadThrough {
	c := &ReadThrough{
		backend: backend,
		compute: compute,
		ttl:     DefaultTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the dish stats, recomputing on miss or expiry.
func (c *ReadThrough) Get(ctx context.Context, dishID string) (model.DishStats, error) {
	if stats, ok, err := c.backend.Get(ctx, dishID); err == nil && ok {
		metrics.RecordCacheHit()
		return stats, nil
	}
	metrics.RecordCacheMiss()

	v, err, _ := c.group.Do(dishID, func() (any, error) {
		stats, err := c.compute(ctx, dishID)
		if err != nil {
			return model.DishStats{}, err
		}
		// A failed backend write only loses the caching, not the result.
		_ = c.backend.Set(ctx, dishID, stats, c.ttl)
		return stats, nil
	})
	if err != nil {
		return model.DishStats{}, err
	}
	return v.(model.DishStats), nil
}

// Invalidate drops cached stats for the given dishes. Called after every
// committed submission so reads reflect the latest cascade within one TTL at
// worst, and immediately on the invalidated dishes.
func (c *ReadThrough) Invalidate(ctx context.Context, dishIDs ...string) error {
	return c.backend.Invalidate(ctx, dishIDs...)
}

// Close releases backend resources.
func (c *ReadThrough) Close() error {
	return c.backend.Close()
}
