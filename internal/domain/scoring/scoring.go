// Package scoring converts rankings into time-decayed numeric weights for
// trending and popularity views.
package scoring

import (
	"math"
	"time"

	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/internal/domain/validate"
)

// Default scoring configuration constants.
const (
	// DefaultHalfLife is the decay constant applied to a ranking's age.
	DefaultHalfLife = 30 * 24 * time.Hour
)

// Option applies a configuration option to the DecayScorer.
type Option func(*DecayScorer)

// WithSlotCount sets the position bound N used for base scores.
func WithSlotCount(n int) Option {
	return func(s *DecayScorer) {
		if n > 0 {
			s.slotCount = n
		}
	}
}

// WithHalfLife sets the decay constant.
func WithHalfLife(d time.Duration) Option {
	return func(s *DecayScorer) {
		if d > 0 {
			s.halfLife = d
		}
	}
}

// Scorer computes the decayed weight of a single ranking at a point in time.
type Scorer interface {
	Score(r model.Ranking, now time.Time) float64
}

// DecayScorer implements Scorer as baseScore(position) * exp(-age/halfLife).
//
// Position 1 gets the highest base score (N), position N the lowest (1).
// Status-only judgments score zero: they feed the categorical histograms but
// not the numeric aggregate.
type DecayScorer struct {
	slotCount int
	halfLife  time.Duration
}

// NewDecayScorer creates a scorer with configuration options.
func NewDecayScorer(opts ...Option) *DecayScorer {
	s := &DecayScorer{
		slotCount: validate.DefaultSlotCount,
		halfLife:  DefaultHalfLife,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// BaseScore returns max(N+1-position, 0), the undecayed weight of a position.
func (s *DecayScorer) BaseScore(position int) float64 {
	base := float64(s.slotCount + 1 - position)
	return math.Max(base, 0)
}

// Score computes the decayed weight of r at now. Rankings updated in the
// future (clock skew) decay as if updated at now.
func (s *DecayScorer) Score(r model.Ranking, now time.Time) float64 {
	if !r.Positional() {
		return 0
	}
	age := now.Sub(r.UpdatedAt)
	if age < 0 {
		age = 0
	}
	return s.BaseScore(r.Position) * math.Exp(-float64(age)/float64(s.halfLife))
}

// Aggregate sums Score over rankings. It is recomputable at read time from
// stored position/updatedAt alone.
func (s *DecayScorer) Aggregate(rankings []model.Ranking, now time.Time) float64 {
	var total float64
	for _, r := range rankings {
		total += s.Score(r, now)
	}
	return total
}
