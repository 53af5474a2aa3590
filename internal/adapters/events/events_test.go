package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tablepick/topdish/internal/adapters/events"
	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var eventScope = model.ScopeKey{UserID: "u1", RestaurantID: "r1", DishTypeID: "ramen"}

func changeEvent(dishID string) events.ChangeEvent {
	return events.ChangeEvent{
		Scope: eventScope,
		Kind:  model.ChangeCreate,
		After: model.Ranking{DishID: dishID, Scope: eventScope, Position: 1},
	}
}

// collectPublisher records published events for assertions.
type collectPublisher struct {
	mu     sync.Mutex
	events []events.ChangeEvent
	fail   error
}

func (p *collectPublisher) Publish(_ context.Context, ev events.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *collectPublisher) published() []events.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ChangeEvent(nil), p.events...)
}

func TestQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a bounded queue", t, func() {
		q := events.NewQueue(events.WithCapacity(2))

		Convey("When events fit the capacity", func() {
			So(q.Enqueue(ctx, changeEvent("A")), ShouldBeNil)
			So(q.Enqueue(ctx, changeEvent("B")), ShouldBeNil)

			Convey("Then the queue reports its depth", func() {
				So(q.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the queue overflows", func() {
			So(q.Enqueue(ctx, changeEvent("A")), ShouldBeNil)
			So(q.Enqueue(ctx, changeEvent("B")), ShouldBeNil)
			err := q.Enqueue(ctx, changeEvent("C"))

			Convey("Then the overflow is reported, not blocked on", func() {
				So(err, ShouldWrap, events.ErrQueueFull)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, changeEvent("A")), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new events are refused", func() {
				So(q.Enqueue(ctx, changeEvent("B")), ShouldWrap, events.ErrQueueClosed)
			})

			Convey("Then buffered events remain consumable", func() {
				ev, ok := <-q.Dequeue()
				So(ok, ShouldBeTrue)
				So(ev.After.DishID, ShouldEqual, "A")

				_, ok = <-q.Dequeue()
				So(ok, ShouldBeFalse)
			})

			Convey("Then closing again is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dispatcher draining a queue", t, func() {
		q := events.NewQueue(events.WithCapacity(100))
		pub := &collectPublisher{}
		d := events.NewDispatcher(q, pub, events.WithDispatcherCount(3))

		Convey("When events are enqueued and the queue closes", func() {
			for _, dish := range []string{"A", "B", "C", "D", "E"} {
				So(q.Enqueue(ctx, changeEvent(dish)), ShouldBeNil)
			}
			d.Start(context.Background())
			So(q.Close(), ShouldBeNil)
			d.Wait()

			Convey("Then every event is published exactly once", func() {
				got := pub.published()
				So(got, ShouldHaveLength, 5)
				seen := make(map[string]int)
				for _, ev := range got {
					seen[ev.After.DishID]++
				}
				for _, dish := range []string{"A", "B", "C", "D", "E"} {
					So(seen[dish], ShouldEqual, 1)
				}
			})
		})

		Convey("When the publisher fails", func() {
			pub.fail = errors.New("broker down")
			So(q.Enqueue(ctx, changeEvent("A")), ShouldBeNil)
			d.Start(context.Background())
			So(q.Close(), ShouldBeNil)
			d.Wait()

			Convey("Then the dispatcher drains without stalling", func() {
				So(pub.published(), ShouldHaveLength, 0)
				So(q.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestEventsFromChangeSet(t *testing.T) {
	Convey("Given a committed change set", t, func() {
		at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		before := model.Ranking{DishID: "A", Scope: eventScope, Position: 1}
		after := before
		after.Position = 2
		cs := model.ChangeSet{
			Scope:       eventScope,
			SubmittedAt: at,
			Changes: []model.Change{
				{Kind: model.ChangeMove, Before: &before, After: after},
				{Kind: model.ChangeCreate, After: model.Ranking{DishID: "B", Scope: eventScope, Position: 1}},
			},
		}

		Convey("When expanded into events", func() {
			evs := events.EventsFromChangeSet(cs)

			Convey("Then one event per change carries the commit time", func() {
				So(evs, ShouldHaveLength, 2)
				So(evs[0].Kind, ShouldEqual, model.ChangeMove)
				So(evs[0].Before.Position, ShouldEqual, 1)
				So(evs[0].After.Position, ShouldEqual, 2)
				So(evs[1].Kind, ShouldEqual, model.ChangeCreate)
				So(evs[0].CommittedAt, ShouldEqual, at)
				So(evs[1].CommittedAt, ShouldEqual, at)
			})
		})
	})
}
