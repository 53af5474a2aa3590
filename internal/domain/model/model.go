// Package model contains domain models passed between layers.
package model

import (
	"time"
)

// TasteStatus is a categorical judgment, mutually exclusive with a position.
type TasteStatus string

// Recognized taste statuses.
const (
	TasteAcceptable   TasteStatus = "ACCEPTABLE"
	TasteSecondChance TasteStatus = "SECOND_CHANCE"
	TasteDissatisfied TasteStatus = "DISSATISFIED"
)

// Valid reports whether s is one of the recognized statuses.
func (s TasteStatus) Valid() bool {
	switch s {
	case TasteAcceptable, TasteSecondChance, TasteDissatisfied:
		return true
	}
	return false
}

// ScopeKey is the (user, restaurant, dish-type) tuple within which positional
// uniqueness is enforced. Submissions to different scope keys are independent.
type ScopeKey struct {
	UserID       string `json:"user_id"`
	RestaurantID string `json:"restaurant_id"`
	DishTypeID   string `json:"dish_type_id"`
}

// Ranking is one user's judgment of one dish at one restaurant.
// Exactly one of Position/Status is set at all times: Position > 0 means a
// positional judgment and Status is empty; Position == 0 means a
// status-only judgment.
type Ranking struct {
	ID        string      `json:"id"`
	Scope     ScopeKey    `json:"scope"`
	DishID    string      `json:"dish_id"`
	Position  int         `json:"position,omitempty"`
	Status    TasteStatus `json:"taste_status,omitempty"`
	Notes     string      `json:"notes"`
	PhotoRefs []string    `json:"photo_refs"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Positional reports whether the ranking holds a slot.
func (r Ranking) Positional() bool { return r.Position > 0 }

// SameJudgment reports whether other carries the identical judgment.
func (r Ranking) SameJudgment(other Ranking) bool {
	return r.Position == other.Position && r.Status == other.Status
}

// SameDocs reports whether other carries identical notes and photo refs.
func (r Ranking) SameDocs(other Ranking) bool {
	if r.Notes != other.Notes || len(r.PhotoRefs) != len(other.PhotoRefs) {
		return false
	}
	for i := range r.PhotoRefs {
		if r.PhotoRefs[i] != other.PhotoRefs[i] {
			return false
		}
	}
	return true
}

// ChangeKind classifies one ranking state transition.
type ChangeKind string

// Change kinds produced by the slot board.
const (
	ChangeCreate ChangeKind = "create" // first judgment for a dish
	ChangeMove   ChangeKind = "move"   // position changed (incl. cascade shifts)
	ChangeDemote ChangeKind = "demote" // pushed out of the ranked set
	ChangeStatus ChangeKind = "status" // taste status changed
	ChangeDocs   ChangeKind = "docs"   // notes/photos updated, judgment unchanged
)

// Change is one ranking state transition. Before is nil for creations.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Before *Ranking   `json:"before,omitempty"`
	After  Ranking    `json:"after"`
}

// ChangeSet is everything one accepted submission did to a scope, committed
// as a single atomic unit.
type ChangeSet struct {
	Scope       ScopeKey  `json:"scope"`
	Changes     []Change  `json:"changes"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Empty reports whether the submission was a no-op.
func (cs ChangeSet) Empty() bool { return len(cs.Changes) == 0 }

// DishIDs returns the distinct dish ids touched by the change set.
func (cs ChangeSet) DishIDs() []string {
	seen := make(map[string]struct{}, len(cs.Changes))
	ids := make([]string, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		if _, ok := seen[c.After.DishID]; ok {
			continue
		}
		seen[c.After.DishID] = struct{}{}
		ids = append(ids, c.After.DishID)
	}
	return ids
}

// HistoryEntry is the immutable record of one ranking state transition.
// Notes and PhotoRefs snapshot the documentation at transition time.
type HistoryEntry struct {
	ID           string      `json:"id"`
	RankingID    string      `json:"ranking_id"`
	Scope        ScopeKey    `json:"scope"`
	DishID       string      `json:"dish_id"`
	PrevPosition int         `json:"prev_position,omitempty"`
	NewPosition  int         `json:"new_position,omitempty"`
	PrevStatus   TasteStatus `json:"prev_status,omitempty"`
	NewStatus    TasteStatus `json:"new_status,omitempty"`
	Notes        string      `json:"notes"`
	PhotoRefs    []string    `json:"photo_refs"`
	RecordedAt   time.Time   `json:"recorded_at"`
}

// TopHolder identifies one current holder of position 1 for a dish.
type TopHolder struct {
	UserID       string    `json:"user_id"`
	RestaurantID string    `json:"restaurant_id"`
	DishTypeID   string    `json:"dish_type_id"`
	Since        time.Time `json:"since"`
}

// DishStats is the derived aggregate view of one dish.
type DishStats struct {
	DishID            string              `json:"dish_id"`
	TotalJudgments    int                 `json:"total_judgments"`
	PositionHistogram []int               `json:"position_histogram"` // index i = count at position i+1
	StatusHistogram   map[TasteStatus]int `json:"status_histogram"`
	AggregateScore    float64             `json:"aggregate_score"`
	TopHolders        []TopHolder         `json:"top_holders"`
}

// UserStats is the derived aggregate view of one user's judgments.
type UserStats struct {
	UserID         string              `json:"user_id"`
	TotalJudgments int                 `json:"total_judgments"`
	PositionCounts []int               `json:"position_counts"`
	StatusCounts   map[TasteStatus]int `json:"status_counts"`
	Rankings       []Ranking           `json:"rankings"`
}

// Criterion is a user-defined multi-faceted ranking filter used to compute
// specialized leaderboards distinct from the canonical per-dish aggregate.
type Criterion struct {
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories,omitempty"`
	TimeOfDay     string   `json:"time_of_day,omitempty"` // operating-hours bucket, e.g. "lunch"
	Tags          []string `json:"tags,omitempty"`
}

// LeaderboardEntry is one row of a criterion-scoped leaderboard.
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	DishID string  `json:"dish_id"`
	Score  float64 `json:"score"`
}
