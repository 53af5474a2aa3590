package events

import (
	"context"
	"sync"

	"github.com/tablepick/topdish/pkg/logger"
	"github.com/tablepick/topdish/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultDispatcherCount = 2
)

// DispatcherOption applies a configuration option to the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherCount sets the number of dispatch goroutines.
func WithDispatcherCount(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.count = n
		}
	}
}

// WithDispatcherLogger sets a custom logger.
func WithDispatcherLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher drains the publish queue with a small worker pool, invoking the
// publisher once per committed change. A failed publish is logged and
// counted; the engine guarantees the hook fires, not downstream delivery.
type Dispatcher struct {
	queue     *Queue
	publisher Publisher
	count     int
	logger    logger.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(queue *Queue, publisher Publisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		queue:     queue,
		publisher: publisher,
		count:     defaultDispatcherCount,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logger.Get().Named("dispatcher")
	}

	return d
}

// Start launches the dispatch workers. They run until the queue closes and
// drains, or ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.count; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run(ctx)
		}()
	}
}

// Wait blocks until all workers have stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.queue.Dequeue():
			if !ok {
				return
			}
			if err := d.publisher.Publish(ctx, ev); err != nil {
				metrics.RecordPublishFailure()
				d.logger.Error(ctx, "publish change event failed",
					logger.String("dish", ev.After.DishID),
					logger.String("kind", string(ev.Kind)),
					logger.Error(err),
				)
				continue
			}
			metrics.RecordPublishSuccess()
		}
	}
}
