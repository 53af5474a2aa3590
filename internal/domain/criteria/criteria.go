// Package criteria evaluates dishes against user-defined multi-faceted
// ranking criteria and produces bonus multipliers for criterion-scoped
// leaderboards. The canonical per-dish aggregate score is never altered here.
package criteria

import (
	"slices"
	"strings"
)

// Bonus weights applied on top of the decayed base score.
const (
	timeOfDayBonus = 0.20 // +20% when the criterion's time-of-day matches
	tagBonus       = 0.10 // +10% per matching attribute tag
)

// DishInfo is the catalog view of a dish needed for criterion matching.
type DishInfo struct {
	DishID      string
	Category    string
	Subcategory string
	Tags        []string
}

// RestaurantInfo is the catalog view of a restaurant needed for matching.
type RestaurantInfo struct {
	RestaurantID string
	HoursBucket  string // declared operating-hours bucket, e.g. "breakfast"
	Tags         []string
}

// Criterion is the facet set a leaderboard is scoped to.
type Criterion struct {
	Category      string
	Subcategories []string
	TimeOfDay     string
	Tags          []string
}

// Engine matches catalog entries against criteria.
type Engine struct{}

// NewEngine creates a criteria engine.
func NewEngine() *Engine { return &Engine{} }

// Matches reports whether the dish falls inside the criterion's category
// scope. An empty category matches everything; a non-empty subcategory list
// restricts further.
func (e *Engine) Matches(c Criterion, dish DishInfo) bool {
	if c.Category != "" && !strings.EqualFold(c.Category, dish.Category) {
		return false
	}
	if len(c.Subcategories) == 0 {
		return true
	}
	for _, sub := range c.Subcategories {
		if strings.EqualFold(sub, dish.Subcategory) {
			return true
		}
	}
	return false
}

// Multiplier returns the weighted bonus multiplier for a matching dish:
// (1 + 0.2 on a time-of-day match) * (1 + 0.1)^matchingTags, applied
// multiplicatively to the decayed score before aggregation.
func (e *Engine) Multiplier(c Criterion, dish DishInfo, restaurant RestaurantInfo) float64 {
	m := 1.0
	if c.TimeOfDay != "" && strings.EqualFold(c.TimeOfDay, restaurant.HoursBucket) {
		m *= 1 + timeOfDayBonus
	}
	for _, tag := range c.Tags {
		if containsFold(dish.Tags, tag) || containsFold(restaurant.Tags, tag) {
			m *= 1 + tagBonus
		}
	}
	return m
}

func containsFold(tags []string, want string) bool {
	return slices.ContainsFunc(tags, func(t string) bool {
		return strings.EqualFold(t, want)
	})
}
