// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// DishHandler handles dish aggregate queries.
type DishHandler struct {
	deps Dependencies
}

// NewDishHandler creates a new dish handler.
func NewDishHandler(deps Dependencies) *DishHandler {
	return &DishHandler{deps: deps}
}

// HandleGetDish handles GET /dishes/{dish_id}/rankings requests.
func (h *DishHandler) HandleGetDish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameters after /dishes/
	rest := strings.TrimPrefix(r.URL.Path, "/dishes/")
	dishID, action, ok := strings.Cut(rest, "/")
	if !ok || dishID == "" || action != "rankings" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	stats, err := h.deps.DishStats(r.Context(), dishID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
