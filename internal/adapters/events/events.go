// Package events delivers committed ranking changes to downstream
// consumers. Change sets are enqueued on a bounded in-memory queue after
// their transaction commits and drained by dispatcher workers that invoke a
// Publisher once per committed change. Delivery beyond the publisher (broker
// availability, consumer success) is out of scope.
package events

import (
	"context"
	"time"

	"github.com/tablepick/topdish/internal/domain/model"
)

// ChangeEvent is the publication payload for one committed ranking change.
type ChangeEvent struct {
	Scope       model.ScopeKey   `json:"scope"`
	Kind        model.ChangeKind `json:"kind"`
	Before      *model.Ranking   `json:"before,omitempty"`
	After       model.Ranking    `json:"after"`
	CommittedAt time.Time        `json:"committed_at"`
}

// Publisher hands one change event to a delivery backend.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// EventsFromChangeSet expands a committed change set into publication
// payloads, one per changed ranking.
func EventsFromChangeSet(cs model.ChangeSet) []ChangeEvent {
	out := make([]ChangeEvent, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		out = append(out, ChangeEvent{
			Scope:       cs.Scope,
			Kind:        c.Kind,
			Before:      c.Before,
			After:       c.After,
			CommittedAt: cs.SubmittedAt,
		})
	}
	return out
}
