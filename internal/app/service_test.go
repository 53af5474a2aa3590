package app_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tablepick/topdish/internal/adapters/catalog"
	app "github.com/tablepick/topdish/internal/app"
	"github.com/tablepick/topdish/internal/domain/criteria"
	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/internal/domain/validate"
	"github.com/tablepick/topdish/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var svcScope = model.ScopeKey{UserID: "u1", RestaurantID: "r1", DishTypeID: "ramen"}

func submission(dishID string, position int) validate.Submission {
	return validate.Submission{
		Scope:     svcScope,
		DishID:    dishID,
		Position:  position,
		Notes:     "worth a detour",
		PhotoRefs: []string{"photo://" + dishID},
	}
}

// startedService builds and starts a service with in-memory defaults.
func startedService(opts ...app.Option) *app.Service {
	svc := app.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was never started", t, func() {
		svc := app.New()

		Convey("When operations are invoked", func() {
			_, submitErr := svc.Submit(ctx, submission("A", 1))
			_, statsErr := svc.DishStats(ctx, "A")

			Convey("Then they refuse to run", func() {
				So(submitErr, ShouldWrap, app.ErrNotStarted)
				So(statsErr, ShouldWrap, app.ErrNotStarted)
			})
		})
	})

	Convey("Given a started service", t, func() {
		svc := startedService()

		Convey("When Start is called again", func() {
			Convey("Then it is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When the service stops", func() {
			svc.Stop()

			Convey("Then operations refuse to run", func() {
				_, err := svc.Submit(ctx, submission("A", 1))
				So(err, ShouldWrap, app.ErrNotStarted)
			})

			Convey("Then stopping again is harmless", func() {
				svc.Stop()
			})
		})

		Convey("Then GetStats reports the running state", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["slots"], ShouldEqual, 5)
			svc.Stop()
		})
	})
}

func TestServiceSubmit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := startedService()
		defer svc.Stop()

		Convey("When a first dish is ranked at position 1", func() {
			res, err := svc.Submit(ctx, submission("A", 1))

			Convey("Then the ranking and its stats come back", func() {
				So(err, ShouldBeNil)
				So(res.Changed, ShouldEqual, 1)
				So(res.Duplicate, ShouldBeFalse)
				So(res.Ranking.DishID, ShouldEqual, "A")
				So(res.Ranking.Position, ShouldEqual, 1)
				So(res.DishStats.TotalJudgments, ShouldEqual, 1)
				So(res.DishStats.PositionHistogram[0], ShouldEqual, 1)
				So(res.DishStats.TopHolders, ShouldHaveLength, 1)
				So(res.DishStats.TopHolders[0].UserID, ShouldEqual, "u1")
			})
		})

		Convey("When a second dish claims the same position", func() {
			_, err := svc.Submit(ctx, submission("A", 1))
			So(err, ShouldBeNil)
			res, err := svc.Submit(ctx, submission("B", 1))

			Convey("Then the first dish is displaced to position 2", func() {
				So(err, ShouldBeNil)
				So(res.Changed, ShouldEqual, 2)

				user, err := svc.UserStats(ctx, "u1")
				So(err, ShouldBeNil)
				So(user.TotalJudgments, ShouldEqual, 2)
				So(user.Rankings[0].DishID, ShouldEqual, "B")
				So(user.Rankings[0].Position, ShouldEqual, 1)
				So(user.Rankings[1].DishID, ShouldEqual, "A")
				So(user.Rankings[1].Position, ShouldEqual, 2)
			})

			Convey("Then the displacement is recorded in history", func() {
				So(err, ShouldBeNil)
				entries, err := svc.History(ctx, "u1")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 3) // create A, move A, create B
				So(entries[1].DishID, ShouldEqual, "A")
				So(entries[1].PrevPosition, ShouldEqual, 1)
				So(entries[1].NewPosition, ShouldEqual, 2)
			})
		})

		Convey("When a full board receives another position-1 claim", func() {
			for i, dish := range []string{"A", "B", "C", "D", "E"} {
				_, err := svc.Submit(ctx, submission(dish, i+1))
				So(err, ShouldBeNil)
			}
			res, err := svc.Submit(ctx, submission("F", 1))

			Convey("Then the last holder is demoted to a second chance", func() {
				So(err, ShouldBeNil)
				So(res.Changed, ShouldEqual, 6)

				stats, err := svc.DishStats(ctx, "E")
				So(err, ShouldBeNil)
				So(stats.TotalJudgments, ShouldEqual, 1)
				So(stats.StatusHistogram[model.TasteSecondChance], ShouldEqual, 1)
				So(stats.AggregateScore, ShouldEqual, 0)
			})
		})

		Convey("When the identical submission is repeated", func() {
			first, err := svc.Submit(ctx, submission("A", 1))
			So(err, ShouldBeNil)
			second, err := svc.Submit(ctx, submission("A", 1))

			Convey("Then the resubmission is a no-op", func() {
				So(err, ShouldBeNil)
				So(second.Changed, ShouldEqual, 0)
				So(second.Ranking.ID, ShouldEqual, first.Ranking.ID)

				entries, err := svc.History(ctx, "u1")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})

		Convey("When a submission id is reused", func() {
			sub := submission("A", 1)
			sub.SubmissionID = "req-1"
			_, err := svc.Submit(ctx, sub)
			So(err, ShouldBeNil)

			retry := submission("A", 3)
			retry.SubmissionID = "req-1"
			res, err := svc.Submit(ctx, retry)

			Convey("Then the retry acknowledges without re-running the cascade", func() {
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeTrue)
				So(res.Ranking.Position, ShouldEqual, 1)

				entries, err := svc.History(ctx, "u1")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})

		Convey("When a rejected submission reuses its id", func() {
			bad := submission("A", 9)
			bad.SubmissionID = "req-2"
			_, err := svc.Submit(ctx, bad)
			So(err, ShouldWrap, validate.ErrOutOfRange)

			good := submission("A", 1)
			good.SubmissionID = "req-2"
			res, err := svc.Submit(ctx, good)

			Convey("Then the corrected retry is processed", func() {
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(res.Ranking.Position, ShouldEqual, 1)
			})
		})

		Convey("When the judgment is invalid", func() {
			sub := submission("A", 1)
			sub.Status = model.TasteAcceptable
			_, err := svc.Submit(ctx, sub)

			Convey("Then validation rejects it before any state changes", func() {
				So(err, ShouldWrap, validate.ErrInvalidJudgment)
				stats, statsErr := svc.DishStats(ctx, "A")
				So(statsErr, ShouldBeNil)
				So(stats.TotalJudgments, ShouldEqual, 0)
			})
		})

		Convey("When the same dish is ranked by another user", func() {
			_, err := svc.Submit(ctx, submission("A", 1))
			So(err, ShouldBeNil)

			other := submission("A", 2)
			other.Scope.UserID = "u2"
			_, err = svc.Submit(ctx, other)
			So(err, ShouldBeNil)

			Convey("Then the dish aggregate spans both scopes", func() {
				stats, err := svc.DishStats(ctx, "A")
				So(err, ShouldBeNil)
				So(stats.TotalJudgments, ShouldEqual, 2)
				So(stats.PositionHistogram[0], ShouldEqual, 1)
				So(stats.PositionHistogram[1], ShouldEqual, 1)
				So(stats.TopHolders, ShouldHaveLength, 1)

				// 5 for position 1 plus 4 for position 2, both fresh.
				So(stats.AggregateScore, ShouldAlmostEqual, 9, 0.01)
			})
		})

		Convey("When stats are requested for an unknown dish", func() {
			stats, err := svc.DishStats(ctx, "mystery")

			Convey("Then empty stats are returned, not an error", func() {
				So(err, ShouldBeNil)
				So(stats.DishID, ShouldEqual, "mystery")
				So(stats.TotalJudgments, ShouldEqual, 0)
			})
		})
	})
}

func TestServiceCustomLeaderboard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a populated catalog", t, func() {
		lookup := catalog.NewStatic()
		lookup.PutDish(criteria.DishInfo{DishID: "ramen-1", Category: "Noodles", Subcategory: "Ramen", Tags: []string{"spicy"}})
		lookup.PutDish(criteria.DishInfo{DishID: "udon-1", Category: "Noodles", Subcategory: "Udon"})
		lookup.PutDish(criteria.DishInfo{DishID: "cake-1", Category: "Dessert"})
		lookup.PutRestaurant(criteria.RestaurantInfo{RestaurantID: "r1", HoursBucket: "lunch"})

		svc := startedService(app.WithCatalog(lookup))
		defer svc.Stop()

		_, err := svc.Submit(ctx, submission("ramen-1", 1))
		So(err, ShouldBeNil)
		_, err = svc.Submit(ctx, submission("udon-1", 2))
		So(err, ShouldBeNil)
		_, err = svc.Submit(ctx, submission("cake-1", 3))
		So(err, ShouldBeNil)

		Convey("When a category criterion is applied", func() {
			entries, err := svc.CustomLeaderboard(ctx, model.Criterion{Category: "Noodles"}, 10)

			Convey("Then only matching dishes appear, ranked", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].DishID, ShouldEqual, "ramen-1")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].DishID, ShouldEqual, "udon-1")
				So(entries[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When bonuses reorder close scores", func() {
			// udon at position 2 scores 4; with lunch and spicy bonuses the
			// ramen at position 1 scores 5 * 1.2 * 1.1.
			crit := model.Criterion{Category: "Noodles", TimeOfDay: "lunch", Tags: []string{"spicy"}}
			entries, err := svc.CustomLeaderboard(ctx, crit, 10)

			Convey("Then the multiplier is applied per dish", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].DishID, ShouldEqual, "ramen-1")
				So(entries[0].Score, ShouldAlmostEqual, 5*1.2*1.1, 0.01)
				So(entries[1].Score, ShouldAlmostEqual, 4*1.2, 0.01)
			})
		})

		Convey("When the limit truncates the board", func() {
			entries, err := svc.CustomLeaderboard(ctx, model.Criterion{Category: "Noodles"}, 1)

			Convey("Then only the top entry is returned", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].DishID, ShouldEqual, "ramen-1")
			})
		})

		Convey("When no dish matches", func() {
			entries, err := svc.CustomLeaderboard(ctx, model.Criterion{Category: "Seafood"}, 10)

			Convey("Then the board is empty", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 0)
			})
		})
	})
}

func TestServiceCustomOptions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a three-slot board", t, func() {
		svc := startedService(app.WithSlotCount(3), app.WithHalfLife(time.Hour))
		defer svc.Stop()

		Convey("When a position past the custom bound is submitted", func() {
			_, err := svc.Submit(ctx, submission("A", 4))

			Convey("Then it is out of range", func() {
				So(err, ShouldWrap, validate.ErrOutOfRange)
			})
		})

		Convey("When the custom board fills", func() {
			for i, dish := range []string{"A", "B", "C"} {
				_, err := svc.Submit(ctx, submission(dish, i+1))
				So(err, ShouldBeNil)
			}
			_, err := svc.Submit(ctx, submission("D", 1))
			So(err, ShouldBeNil)

			Convey("Then the third slot's holder is demoted", func() {
				stats, err := svc.DishStats(ctx, "C")
				So(err, ShouldBeNil)
				So(stats.StatusHistogram[model.TasteSecondChance], ShouldEqual, 1)
			})
		})
	})
}
