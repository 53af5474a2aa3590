package app

import (
	"context"
	"sync"
	"time"

	"github.com/tablepick/topdish/internal/domain/model"
)

// keyLock serializes mutations per scope key. Submissions to different
// scopes proceed in parallel; two submissions to the same scope never
// interleave their cascades.
type keyLock struct {
	mu    sync.Mutex
	slots map[model.ScopeKey]chan struct{}
}

func newKeyLock() *keyLock {
	return &keyLock{
		slots: make(map[model.ScopeKey]chan struct{}),
	}
}

// acquire takes the lock for key, waiting at most timeout. Returns a release
// function, or ErrContention when the lock cannot be taken in time. No state
// is held after a timeout.
func (l *keyLock) acquire(ctx context.Context, key model.ScopeKey, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	sem, ok := l.slots[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.slots[key] = sem
	}
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-timer.C:
		return nil, ErrContention
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
