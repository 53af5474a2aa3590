// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/tablepick/topdish/internal/domain/model"
)

// UserHandler handles user-scoped queries.
type UserHandler struct {
	deps Dependencies
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps Dependencies) *UserHandler {
	return &UserHandler{deps: deps}
}

// HandleGetUser handles GET /users/{user_id}/rankings and
// GET /users/{user_id}/history requests.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	userID, action, ok := strings.Cut(rest, "/")
	if !ok || userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	switch action {
	case "rankings":
		stats, err := h.deps.UserStats(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	case "history":
		entries, err := h.deps.History(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if entries == nil {
			entries = []model.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
	}
}
