package model

import (
	"time"

	"github.com/google/uuid"
)

// HistoryFromChange builds the immutable audit record documenting one change.
// Notes and photos snapshot the post-change documentation.
func HistoryFromChange(c Change, at time.Time) HistoryEntry {
	e := HistoryEntry{
		ID:          uuid.NewString(),
		RankingID:   c.After.ID,
		Scope:       c.After.Scope,
		DishID:      c.After.DishID,
		NewPosition: c.After.Position,
		NewStatus:   c.After.Status,
		Notes:       c.After.Notes,
		PhotoRefs:   c.After.PhotoRefs,
		RecordedAt:  at,
	}
	if c.Before != nil {
		e.PrevPosition = c.Before.Position
		e.PrevStatus = c.Before.Status
	}
	return e
}
