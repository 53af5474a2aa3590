package validate_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/internal/domain/validate"
)

func validSubmission() validate.Submission {
	return validate.Submission{
		SubmissionID: "sub-1",
		Scope:        model.ScopeKey{UserID: "u1", RestaurantID: "r1", DishTypeID: "ramen"},
		DishID:       "dish-1",
		Position:     1,
		Notes:        "silky broth, firm noodles",
		PhotoRefs:    []string{"photo://1"},
	}
}

func TestValidator(t *testing.T) {
	Convey("Given a validator with default configuration", t, func() {
		v := validate.New()
		So(v.SlotCount(), ShouldEqual, validate.DefaultSlotCount)

		Convey("When a well-formed positional submission is validated", func() {
			sub, err := v.Validate(validSubmission())

			Convey("Then it passes unchanged", func() {
				So(err, ShouldBeNil)
				So(sub.Position, ShouldEqual, 1)
				So(sub.Status, ShouldBeEmpty)
			})
		})

		Convey("When a well-formed status submission is validated", func() {
			in := validSubmission()
			in.Position = 0
			in.Status = model.TasteDissatisfied
			sub, err := v.Validate(in)

			Convey("Then it passes", func() {
				So(err, ShouldBeNil)
				So(sub.Status, ShouldEqual, model.TasteDissatisfied)
			})
		})

		Convey("When both position and status are set", func() {
			in := validSubmission()
			in.Status = model.TasteAcceptable
			_, err := v.Validate(in)

			Convey("Then the judgment is rejected", func() {
				So(err, ShouldWrap, validate.ErrInvalidJudgment)
			})
		})

		Convey("When neither position nor status is set", func() {
			in := validSubmission()
			in.Position = 0
			_, err := v.Validate(in)

			Convey("Then the judgment is rejected", func() {
				So(err, ShouldWrap, validate.ErrInvalidJudgment)
			})
		})

		Convey("When the status value is unrecognized", func() {
			in := validSubmission()
			in.Position = 0
			in.Status = "MEDIOCRE"
			_, err := v.Validate(in)

			Convey("Then the judgment is rejected", func() {
				So(err, ShouldWrap, validate.ErrInvalidJudgment)
			})
		})

		Convey("When the position is out of range", func() {
			for _, p := range []int{-1, 6, 100} {
				in := validSubmission()
				in.Position = p
				_, err := v.Validate(in)
				So(err, ShouldWrap, validate.ErrOutOfRange)
			}
		})

		Convey("When the notes are blank", func() {
			in := validSubmission()
			in.Notes = "   \t  "
			_, err := v.Validate(in)

			Convey("Then documentation is reported missing", func() {
				So(err, ShouldWrap, validate.ErrMissingDocumentation)
			})
		})

		Convey("When no usable photo reference is given", func() {
			in := validSubmission()
			in.PhotoRefs = []string{"", "  "}
			_, err := v.Validate(in)

			Convey("Then documentation is reported missing", func() {
				So(err, ShouldWrap, validate.ErrMissingDocumentation)
			})
		})

		Convey("When photo references carry blank entries", func() {
			in := validSubmission()
			in.PhotoRefs = []string{" photo://1 ", "", "photo://2"}
			sub, err := v.Validate(in)

			Convey("Then blanks are dropped and the rest normalized", func() {
				So(err, ShouldBeNil)
				So(sub.PhotoRefs, ShouldResemble, []string{"photo://1", "photo://2"})
			})
		})

		Convey("When the scope key is incomplete", func() {
			in := validSubmission()
			in.Scope.RestaurantID = ""
			_, err := v.Validate(in)

			Convey("Then the submission is rejected", func() {
				So(err, ShouldWrap, validate.ErrInvalidSubmission)
			})
		})

		Convey("When the dish id is missing", func() {
			in := validSubmission()
			in.DishID = "  "
			_, err := v.Validate(in)

			Convey("Then the submission is rejected", func() {
				So(err, ShouldWrap, validate.ErrInvalidSubmission)
			})
		})
	})

	Convey("Given a validator with a custom slot bound", t, func() {
		v := validate.New(validate.WithSlotCount(10))

		Convey("Then positions up to the bound pass", func() {
			in := validSubmission()
			in.Position = 10
			_, err := v.Validate(in)
			So(err, ShouldBeNil)
		})

		Convey("Then positions past the bound fail", func() {
			in := validSubmission()
			in.Position = 11
			_, err := v.Validate(in)
			So(err, ShouldWrap, validate.ErrOutOfRange)
		})
	})
}
