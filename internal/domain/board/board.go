// Package board implements the per-scope slot board: a bounded ordered list
// of rank positions with displacement semantics. Assigning position P to a
// dish when another dish already holds P shifts the holder (and any chain of
// holders below it) one slot toward the worse end; a dish pushed past the
// last slot is demoted out of the ranked set.
//
// The board is a pure in-memory structure so the cascade algorithm is
// testable in isolation from storage. It is not safe for concurrent use; the
// caller serializes access per scope key.
package board

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/internal/domain/validate"
)

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithSlotCount sets the number of tracked positions N.
func WithSlotCount(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.slotCount = n
		}
	}
}

// Board holds the current rankings of one scope key.
type Board struct {
	scope     model.ScopeKey
	slotCount int

	// slots[i] is the dish id at position i+1, or "" when the slot is free.
	slots []string
	// rankings indexes the scope's rankings by dish id.
	rankings map[string]model.Ranking
}

// New builds a Board for scope from its current rankings.
// Returns ErrCorruptScope if the stored rankings violate positional
// uniqueness or the position bound; a corrupt scope must never be mutated.
func New(scope model.ScopeKey, current []model.Ranking, opts ...Option) (*Board, error) {
	b := &Board{
		scope:     scope,
		slotCount: validate.DefaultSlotCount,
		rankings:  make(map[string]model.Ranking, len(current)),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.slots = make([]string, b.slotCount)
	for _, r := range current {
		if _, dup := b.rankings[r.DishID]; dup {
			return nil, fmt.Errorf("%w: dish %s appears twice", ErrCorruptScope, r.DishID)
		}
		b.rankings[r.DishID] = r
		if !r.Positional() {
			continue
		}
		if r.Position > b.slotCount {
			return nil, fmt.Errorf("%w: dish %s at position %d with %d slots", ErrCorruptScope, r.DishID, r.Position, b.slotCount)
		}
		if holder := b.slots[r.Position-1]; holder != "" {
			return nil, fmt.Errorf("%w: position %d held by %s and %s", ErrCorruptScope, r.Position, holder, r.DishID)
		}
		b.slots[r.Position-1] = r.DishID
	}

	return b, nil
}

// Ranking returns the tracked ranking for a dish.
func (b *Board) Ranking(dishID string) (model.Ranking, bool) {
	r, ok := b.rankings[dishID]
	return r, ok
}

// Holder returns the dish id at position p, or "" when the slot is free.
func (b *Board) Holder(p int) (string, error) {
	if p < 1 || p > b.slotCount {
		return "", fmt.Errorf("%w: %d", ErrInvalidPosition, p)
	}
	return b.slots[p-1], nil
}

// Rankings returns all tracked rankings in unspecified order.
func (b *Board) Rankings() []model.Ranking {
	out := make([]model.Ranking, 0, len(b.rankings))
	for _, r := range b.rankings {
		out = append(out, r)
	}
	return out
}

// Apply resolves a validated submission against the board and returns the
// change set it produces. The board is mutated to the post-submission state;
// the caller commits the change set atomically and discards the board on
// failure.
//
// A resubmission of the identical judgment with identical documentation
// yields an empty change set. Identical judgment with new notes/photos yields
// a single docs change and no positional side effects.
func (b *Board) Apply(sub validate.Submission, now time.Time) (model.ChangeSet, error) {
	cs := model.ChangeSet{Scope: b.scope, SubmittedAt: now}

	old, exists := b.rankings[sub.DishID]
	next := model.Ranking{
		ID:        uuid.NewString(),
		Scope:     b.scope,
		DishID:    sub.DishID,
		Position:  sub.Position,
		Status:    sub.Status,
		Notes:     sub.Notes,
		PhotoRefs: sub.PhotoRefs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if exists {
		next.ID = old.ID
		next.CreatedAt = old.CreatedAt
	}

	// No-op and docs-only detection for resubmissions.
	if exists && old.SameJudgment(next) {
		if old.SameDocs(next) {
			return cs, nil
		}
		b.rankings[sub.DishID] = next
		prev := old
		cs.Changes = append(cs.Changes, model.Change{Kind: model.ChangeDocs, Before: &prev, After: next})
		return cs, nil
	}

	// Vacate the dish's previous slot before resolving collisions so the
	// cascade never counts the submitting dish as its own victim.
	if exists && old.Positional() {
		b.slots[old.Position-1] = ""
	}

	if next.Positional() {
		if next.Position > b.slotCount {
			return model.ChangeSet{}, fmt.Errorf("%w: %d", ErrInvalidPosition, next.Position)
		}
		cs.Changes = append(cs.Changes, b.cascade(next.Position, now)...)
		b.slots[next.Position-1] = next.DishID
	}

	b.rankings[sub.DishID] = next

	kind := model.ChangeCreate
	var before *model.Ranking
	if exists {
		prev := old
		before = &prev
		switch {
		case next.Positional():
			kind = model.ChangeMove
		default:
			kind = model.ChangeStatus
		}
	}
	cs.Changes = append(cs.Changes, model.Change{Kind: kind, Before: before, After: next})

	return cs, nil
}

// cascade frees position p by shifting the chain of holders starting at p one
// slot toward the worse end. The chain stops at the first free slot; if it
// runs past the last slot, the final holder is demoted out of the ranked set
// and reverts to a SECOND_CHANCE status so it can be re-judged later.
func (b *Board) cascade(p int, now time.Time) []model.Change {
	if b.slots[p-1] == "" {
		return nil
	}

	// Find the end of the occupied run [p, end].
	end := p
	for end < b.slotCount && b.slots[end] != "" {
		end++
	}

	var changes []model.Change

	if end == b.slotCount && b.slots[end-1] != "" {
		// Board full below p: the dish at the last slot leaves the ranked set.
		victim := b.rankings[b.slots[end-1]]
		demoted := victim
		demoted.Position = 0
		demoted.Status = model.TasteSecondChance
		demoted.UpdatedAt = now
		b.rankings[demoted.DishID] = demoted
		b.slots[end-1] = ""
		prev := victim
		changes = append(changes, model.Change{Kind: model.ChangeDemote, Before: &prev, After: demoted})
	}

	// Shift the remaining run down by one, worst first, so every move lands
	// on a slot already freed by the previous one.
	for idx := end - 1; idx >= p-1; idx-- {
		dishID := b.slots[idx]
		if dishID == "" {
			continue
		}
		moved := b.rankings[dishID]
		prev := moved
		moved.Position = idx + 2
		moved.UpdatedAt = now
		b.rankings[dishID] = moved
		b.slots[idx+1] = dishID
		b.slots[idx] = ""
		changes = append(changes, model.Change{Kind: model.ChangeMove, Before: &prev, After: moved})
	}

	return changes
}
