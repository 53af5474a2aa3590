// Package repository defines the ranking store interface and its
// implementations.
package repository

import (
	"context"

	"github.com/tablepick/topdish/internal/domain/model"
)

// Store provides durable access to rankings and their history.
//
// Commit is the only write path: it applies every change of one submission
// and appends the matching history entries in a single atomic unit. A change
// without a history entry is a correctness bug, so implementations must not
// expose finer-grained mutation.
type Store interface {
	// ListScope returns the current rankings of one scope key.
	ListScope(ctx context.Context, scope model.ScopeKey) ([]model.Ranking, error)

	// Commit atomically applies a change set and appends one history entry
	// per change. Either all changes apply or none do. Returns the appended
	// entries in change order.
	Commit(ctx context.Context, cs model.ChangeSet) ([]model.HistoryEntry, error)

	// ListByDish returns every ranking referencing a dish, across scopes.
	ListByDish(ctx context.Context, dishID string) ([]model.Ranking, error)

	// ListByUser returns every current ranking owned by a user.
	ListByUser(ctx context.Context, userID string) ([]model.Ranking, error)

	// ListPositional returns every ranking currently holding a slot.
	ListPositional(ctx context.Context) ([]model.Ranking, error)

	// History returns a user's audit trail in chronological order.
	History(ctx context.Context, userID string) ([]model.HistoryEntry, error)

	// Count returns the number of ranking rows tracked.
	Count(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}
