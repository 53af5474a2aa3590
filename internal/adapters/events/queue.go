package events

import (
	"context"
	"sync"

	"github.com/tablepick/topdish/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// QueueOption applies a configuration option to the Queue.
type QueueOption func(*Queue)

// WithCapacity bounds the number of buffered change events.
func WithCapacity(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// Queue buffers committed change events between the submission path and the
// dispatcher workers. Enqueue never blocks the submission path.
type Queue struct {
	events   chan ChangeEvent
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a bounded in-memory queue with configuration options.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.events = make(chan ChangeEvent, q.capacity)
	metrics.UpdatePublishQueueDepth(0)
	return q
}

// Enqueue adds a change event. Returns ErrQueueFull or ErrQueueClosed when
// the event cannot be buffered; the caller decides whether that is fatal.
func (q *Queue) Enqueue(ctx context.Context, ev ChangeEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- ev:
		metrics.UpdatePublishQueueDepth(len(q.events))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Dequeue exposes the event stream. The channel closes when the queue closes
// and all buffered events have been consumed.
func (q *Queue) Dequeue() <-chan ChangeEvent {
	return q.events
}

// Len returns the current number of buffered events.
func (q *Queue) Len() int {
	n := len(q.events)
	metrics.UpdatePublishQueueDepth(n)
	return n
}

// Close stops accepting events. Buffered events remain consumable.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}
