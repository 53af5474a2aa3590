// Package validate enforces structural invariants on a submitted ranking
// before it reaches the slot board. Validation is pure: no side effects, no
// persistence.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tablepick/topdish/internal/domain/model"
)

// DefaultSlotCount is the bound N on positional ranks when none is configured.
const DefaultSlotCount = 5

// Submission is a proposed ranking as received from a caller.
type Submission struct {
	SubmissionID string         `validate:"omitempty,max=128"`
	Scope        model.ScopeKey `validate:"required"`
	DishID       string         `validate:"required"`
	Position     int            // 0 = unset
	Status       model.TasteStatus
	Notes        string
	PhotoRefs    []string
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithSlotCount sets the upper bound N on positional ranks.
func WithSlotCount(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.slotCount = n
		}
	}
}

// Validator checks submissions against the judgment and documentation rules.
type Validator struct {
	slotCount int
	check     *validator.Validate
}

// New creates a Validator with configuration options.
func New(opts ...Option) *Validator {
	v := &Validator{
		slotCount: DefaultSlotCount,
		check:     validator.New(validator.WithRequiredStructEnabled()),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// SlotCount returns the configured position bound N.
func (v *Validator) SlotCount() int { return v.slotCount }

// Validate checks sub and returns a normalized copy on success.
//
// Failure modes:
//   - ErrInvalidSubmission: missing scope/dish identifiers.
//   - ErrInvalidJudgment: neither or both of position/status set, or an
//     unrecognized status value.
//   - ErrOutOfRange: position outside [1, N].
//   - ErrMissingDocumentation: empty notes or no photo reference.
func (v *Validator) Validate(sub Submission) (Submission, error) {
	sub.Notes = strings.TrimSpace(sub.Notes)
	sub.DishID = strings.TrimSpace(sub.DishID)
	sub.SubmissionID = strings.TrimSpace(sub.SubmissionID)

	if err := v.check.Struct(sub); err != nil {
		return Submission{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if sub.Scope.UserID == "" || sub.Scope.RestaurantID == "" || sub.Scope.DishTypeID == "" {
		return Submission{}, fmt.Errorf("%w: scope key must identify user, restaurant and dish type", ErrInvalidSubmission)
	}

	hasPosition := sub.Position != 0
	hasStatus := sub.Status != ""
	switch {
	case hasPosition && hasStatus:
		return Submission{}, fmt.Errorf("%w: both set", ErrInvalidJudgment)
	case !hasPosition && !hasStatus:
		return Submission{}, fmt.Errorf("%w: neither set", ErrInvalidJudgment)
	case hasStatus && !sub.Status.Valid():
		return Submission{}, fmt.Errorf("%w: unknown taste status %q", ErrInvalidJudgment, sub.Status)
	case hasPosition && (sub.Position < 1 || sub.Position > v.slotCount):
		return Submission{}, fmt.Errorf("%w: position %d not in [1, %d]", ErrOutOfRange, sub.Position, v.slotCount)
	}

	if sub.Notes == "" {
		return Submission{}, fmt.Errorf("%w: empty notes", ErrMissingDocumentation)
	}
	photos := make([]string, 0, len(sub.PhotoRefs))
	for _, ref := range sub.PhotoRefs {
		if ref = strings.TrimSpace(ref); ref != "" {
			photos = append(photos, ref)
		}
	}
	if len(photos) == 0 {
		return Submission{}, fmt.Errorf("%w: no photo reference", ErrMissingDocumentation)
	}
	sub.PhotoRefs = photos

	return sub, nil
}
