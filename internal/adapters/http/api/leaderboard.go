// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/tablepick/topdish/internal/domain/model"
)

// leaderboardRequest mirrors the JSON schema for POST /leaderboard/custom.
type leaderboardRequest struct {
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories,omitempty"`
	TimeOfDay     string   `json:"time_of_day,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

// LeaderboardHandler handles criterion-scoped leaderboard requests.
type LeaderboardHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

// HandleCustomLeaderboard handles POST /leaderboard/custom requests. The
// criterion travels in the body; GET with a structured body is unreliable
// across proxies.
func (h *LeaderboardHandler) HandleCustomLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req leaderboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > h.maxLimit {
		limit = h.maxLimit
	}

	crit := model.Criterion{
		Category:      req.Category,
		Subcategories: req.Subcategories,
		TimeOfDay:     req.TimeOfDay,
		Tags:          req.Tags,
	}
	entries, err := h.deps.CustomLeaderboard(r.Context(), crit, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
