package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tablepick/topdish/internal/adapters/repository"
	"github.com/tablepick/topdish/internal/domain/model"
)

var storeScope = model.ScopeKey{UserID: "u1", RestaurantID: "r1", DishTypeID: "ramen"}

func ranking(id, dishID string, position int, status model.TasteStatus, at time.Time) model.Ranking {
	return model.Ranking{
		ID:        id,
		Scope:     storeScope,
		DishID:    dishID,
		Position:  position,
		Status:    status,
		Notes:     "notes for " + dishID,
		PhotoRefs: []string{"photo://" + dishID},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func create(r model.Ranking) model.Change {
	return model.Change{Kind: model.ChangeCreate, After: r}
}

func move(before model.Ranking, position int, at time.Time) model.Change {
	after := before
	after.Position = position
	after.UpdatedAt = at
	prev := before
	return model.Change{Kind: model.ChangeMove, Before: &prev, After: after}
}

func demote(before model.Ranking, at time.Time) model.Change {
	after := before
	after.Position = 0
	after.Status = model.TasteSecondChance
	after.UpdatedAt = at
	prev := before
	return model.Change{Kind: model.ChangeDemote, Before: &prev, After: after}
}

// storeBackends enumerates fresh-store constructors so both implementations
// run the same scenarios. Each call builds a new empty store.
func storeBackends(t *testing.T) map[string]func() repository.Store {
	t.Helper()
	return map[string]func() repository.Store{
		"memory": func() repository.Store {
			return repository.NewMemoryStore()
		},
		"sqlite": func() repository.Store {
			s, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "rankings.db"))
			if err != nil {
				t.Fatalf("open sqlite store: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStoreCommit(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	for name, newStore := range storeBackends(t) {
		Convey("Given an empty "+name+" store", t, func() {
			store := newStore()

			Convey("When a creation commits", func() {
				a := ranking("id-a", "A", 1, "", at)
				entries, err := store.Commit(ctx, model.ChangeSet{
					Scope:       storeScope,
					Changes:     []model.Change{create(a)},
					SubmittedAt: at,
				})

				Convey("Then the ranking and one history entry are stored", func() {
					So(err, ShouldBeNil)
					So(entries, ShouldHaveLength, 1)
					So(entries[0].DishID, ShouldEqual, "A")
					So(entries[0].NewPosition, ShouldEqual, 1)

					got, err := store.ListScope(ctx, storeScope)
					So(err, ShouldBeNil)
					So(got, ShouldHaveLength, 1)
					So(got[0].DishID, ShouldEqual, "A")
					So(got[0].Position, ShouldEqual, 1)
					So(got[0].PhotoRefs, ShouldResemble, []string{"photo://A"})

					n, err := store.Count(ctx)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)
				})
			})

			Convey("When a displacement cascade commits in one change set", func() {
				a := ranking("id-a", "A", 1, "", at)
				b := ranking("id-b", "B", 2, "", at)
				_, err := store.Commit(ctx, model.ChangeSet{
					Scope:       storeScope,
					Changes:     []model.Change{create(a), create(b)},
					SubmittedAt: at,
				})
				So(err, ShouldBeNil)

				// C takes position 1; A and B each shift down one slot. The
				// intermediate states collide on position, so commit must not
				// apply the rows naively one by one.
				later := at.Add(time.Hour)
				c := ranking("id-c", "C", 1, "", later)
				_, err = store.Commit(ctx, model.ChangeSet{
					Scope:       storeScope,
					Changes:     []model.Change{move(b, 3, later), move(a, 2, later), create(c)},
					SubmittedAt: later,
				})

				Convey("Then the post-cascade positions are visible", func() {
					So(err, ShouldBeNil)

					got, err := store.ListScope(ctx, storeScope)
					So(err, ShouldBeNil)
					So(got, ShouldHaveLength, 3)
					So(got[0].DishID, ShouldEqual, "C")
					So(got[1].DishID, ShouldEqual, "A")
					So(got[2].DishID, ShouldEqual, "B")
					So(got[2].Position, ShouldEqual, 3)
				})
			})

			Convey("When a demotion commits", func() {
				e := ranking("id-e", "E", 5, "", at)
				_, err := store.Commit(ctx, model.ChangeSet{
					Scope:       storeScope,
					Changes:     []model.Change{create(e)},
					SubmittedAt: at,
				})
				So(err, ShouldBeNil)

				later := at.Add(time.Hour)
				f := ranking("id-f", "F", 5, "", later)
				entries, err := store.Commit(ctx, model.ChangeSet{
					Scope:       storeScope,
					Changes:     []model.Change{demote(e, later), create(f)},
					SubmittedAt: later,
				})

				Convey("Then the demoted dish loses its slot but keeps its row", func() {
					So(err, ShouldBeNil)
					So(entries, ShouldHaveLength, 2)
					So(entries[0].PrevPosition, ShouldEqual, 5)
					So(entries[0].NewPosition, ShouldEqual, 0)
					So(entries[0].NewStatus, ShouldEqual, model.TasteSecondChance)

					got, err := store.ListByDish(ctx, "E")
					So(err, ShouldBeNil)
					So(got, ShouldHaveLength, 1)
					So(got[0].Positional(), ShouldBeFalse)
					So(got[0].Status, ShouldEqual, model.TasteSecondChance)

					positional, err := store.ListPositional(ctx)
					So(err, ShouldBeNil)
					So(positional, ShouldHaveLength, 1)
					So(positional[0].DishID, ShouldEqual, "F")
				})
			})
		})
	}
}

func TestStoreReads(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	otherScope := model.ScopeKey{UserID: "u2", RestaurantID: "r1", DishTypeID: "ramen"}

	for name, newStore := range storeBackends(t) {
		Convey("Given a populated "+name+" store", t, func() {
			store := newStore()

			a := ranking("id-a", "A", 1, "", at)
			b := ranking("id-b", "B", 0, model.TasteAcceptable, at)
			other := model.Ranking{
				ID: "id-x", Scope: otherScope, DishID: "A", Position: 2,
				Notes: "n", PhotoRefs: []string{"p"}, CreatedAt: at, UpdatedAt: at,
			}
			_, err := store.Commit(ctx, model.ChangeSet{Scope: storeScope, Changes: []model.Change{create(a), create(b)}, SubmittedAt: at})
			So(err, ShouldBeNil)
			_, err = store.Commit(ctx, model.ChangeSet{Scope: otherScope, Changes: []model.Change{create(other)}, SubmittedAt: at})
			So(err, ShouldBeNil)

			Convey("Then ListScope is limited to one scope key", func() {
				got, err := store.ListScope(ctx, storeScope)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].DishID, ShouldEqual, "A") // positional sorts first
				So(got[1].DishID, ShouldEqual, "B")
			})

			Convey("Then ListByDish spans scopes", func() {
				got, err := store.ListByDish(ctx, "A")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
			})

			Convey("Then ListByUser returns only the user's rankings", func() {
				got, err := store.ListByUser(ctx, "u2")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].Scope, ShouldResemble, otherScope)
			})

			Convey("Then ListPositional skips status-only judgments", func() {
				got, err := store.ListPositional(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				for _, r := range got {
					So(r.Positional(), ShouldBeTrue)
				}
			})

			Convey("Then History is per user in append order", func() {
				later := at.Add(time.Hour)
				_, err := store.Commit(ctx, model.ChangeSet{
					Scope:       storeScope,
					Changes:     []model.Change{move(a, 3, later)},
					SubmittedAt: later,
				})
				So(err, ShouldBeNil)

				entries, err := store.History(ctx, "u1")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
				So(entries[0].RecordedAt, ShouldHappenOnOrBefore, entries[2].RecordedAt)
				So(entries[2].PrevPosition, ShouldEqual, 1)
				So(entries[2].NewPosition, ShouldEqual, 3)

				entries, err = store.History(ctx, "u2")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)

				entries, err = store.History(ctx, "nobody")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 0)
			})
		})
	}
}
