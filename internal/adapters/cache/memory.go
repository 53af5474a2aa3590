package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tablepick/topdish/internal/domain/model"
)

type memoryEntry struct {
	stats     model.DishStats
	expiresAt time.Time
}

// MemoryBackend implements Backend with an in-process map. Default backend
// for single-instance deployments and tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns unexpired cached stats.
func (b *MemoryBackend) Get(_ context.Context, dishID string) (model.DishStats, bool, error) {
	b.mu.RLock()
	e, ok := b.entries[dishID]
	b.mu.RUnlock()

	if !ok || b.now().After(e.expiresAt) {
		return model.DishStats{}, false, nil
	}
	return e.stats, true, nil
}

// Set stores stats with expiry.
func (b *MemoryBackend) Set(_ context.Context, dishID string, stats model.DishStats, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[dishID] = memoryEntry{stats: stats, expiresAt: b.now().Add(ttl)}
	return nil
}

// Invalidate drops entries.
func (b *MemoryBackend) Invalidate(_ context.Context, dishIDs ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range dishIDs {
		delete(b.entries, id)
	}
	return nil
}

// Close is a no-op for the in-memory backend.
func (b *MemoryBackend) Close() error { return nil }
