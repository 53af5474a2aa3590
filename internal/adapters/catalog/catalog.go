// Package catalog exposes the read-only dish/restaurant lookup the ranking
// core consumes. The catalog itself is owned elsewhere in the monorepo; this
// adapter only answers criterion-matching queries and never validates that a
// submitted id exists.
package catalog

import (
	"context"
	"sync"

	"github.com/tablepick/topdish/internal/domain/criteria"
)

// Lookup answers catalog queries for criterion-scoped leaderboards.
// Unknown ids return zero-valued info, not errors; the core trusts foreign
// ids beyond presence.
type Lookup interface {
	Dish(ctx context.Context, dishID string) (criteria.DishInfo, error)
	Restaurant(ctx context.Context, restaurantID string) (criteria.RestaurantInfo, error)
}

// Static implements Lookup from an in-memory table. It backs tests and
// deployments where the catalog is pushed to the ranking service rather than
// queried live.
type Static struct {
	mu          sync.RWMutex
	dishes      map[string]criteria.DishInfo
	restaurants map[string]criteria.RestaurantInfo
}

// NewStatic creates an empty static catalog.
func NewStatic() *Static {
	return &Static{
		dishes:      make(map[string]criteria.DishInfo),
		restaurants: make(map[string]criteria.RestaurantInfo),
	}
}

// PutDish registers or replaces a dish entry.
func (s *Static) PutDish(info criteria.DishInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dishes[info.DishID] = info
}

// PutRestaurant registers or replaces a restaurant entry.
func (s *Static) PutRestaurant(info criteria.RestaurantInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants[info.RestaurantID] = info
}

// Dish returns the catalog view of a dish.
func (s *Static) Dish(_ context.Context, dishID string) (criteria.DishInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := s.dishes[dishID]
	info.DishID = dishID
	return info, nil
}

// Restaurant returns the catalog view of a restaurant.
func (s *Static) Restaurant(_ context.Context, restaurantID string) (criteria.RestaurantInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := s.restaurants[restaurantID]
	info.RestaurantID = restaurantID
	return info, nil
}
