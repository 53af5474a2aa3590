package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/tablepick/topdish/internal/domain/model"
)

// rankingKey identifies one ranking row: (scope key, dish).
type rankingKey struct {
	scope  model.ScopeKey
	dishID string
}

// MemoryStore implements Store with in-process maps. Used by tests and
// zero-dependency development runs; semantics match the SQLite store.
type MemoryStore struct {
	mu       sync.RWMutex
	rankings map[rankingKey]model.Ranking
	history  []model.HistoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rankings: make(map[rankingKey]model.Ranking),
	}
}

// ListScope returns the current rankings of one scope key.
func (s *MemoryStore) ListScope(_ context.Context, scope model.ScopeKey) ([]model.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Ranking
	for k, r := range s.rankings {
		if k.scope == scope {
			out = append(out, r)
		}
	}
	sortRankings(out)
	return out, nil
}

// Commit applies the change set under one lock so readers never observe a
// partially-applied cascade.
func (s *MemoryStore) Commit(_ context.Context, cs model.ChangeSet) ([]model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]model.HistoryEntry, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		s.rankings[rankingKey{scope: c.After.Scope, dishID: c.After.DishID}] = c.After
		entries = append(entries, model.HistoryFromChange(c, cs.SubmittedAt))
	}
	s.history = append(s.history, entries...)
	return entries, nil
}

// ListByDish returns every ranking referencing a dish.
func (s *MemoryStore) ListByDish(_ context.Context, dishID string) ([]model.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Ranking
	for k, r := range s.rankings {
		if k.dishID == dishID {
			out = append(out, r)
		}
	}
	sortRankings(out)
	return out, nil
}

// ListByUser returns every current ranking owned by a user.
func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]model.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Ranking
	for k, r := range s.rankings {
		if k.scope.UserID == userID {
			out = append(out, r)
		}
	}
	sortRankings(out)
	return out, nil
}

// ListPositional returns every ranking currently holding a slot.
func (s *MemoryStore) ListPositional(_ context.Context) ([]model.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Ranking
	for _, r := range s.rankings {
		if r.Positional() {
			out = append(out, r)
		}
	}
	sortRankings(out)
	return out, nil
}

// History returns a user's audit trail in append order.
func (s *MemoryStore) History(_ context.Context, userID string) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.HistoryEntry
	for _, e := range s.history {
		if e.Scope.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Count returns the number of ranking rows tracked.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rankings), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// sortRankings orders positional rankings first (best position first), then
// status-only rankings by dish id, for stable read results.
func sortRankings(rs []model.Ranking) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		switch {
		case a.Positional() && b.Positional():
			return a.Position < b.Position
		case a.Positional():
			return true
		case b.Positional():
			return false
		default:
			return a.DishID < b.DishID
		}
	})
}
