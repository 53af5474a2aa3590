// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/internal/domain/validate"
)

// submitRequest mirrors the JSON schema for POST /rankings.
type submitRequest struct {
	SubmissionID string   `json:"submission_id,omitempty"`
	UserID       string   `json:"user_id"`
	RestaurantID string   `json:"restaurant_id"`
	DishTypeID   string   `json:"dish_type_id"`
	DishID       string   `json:"dish_id"`
	Position     int      `json:"position,omitempty"`
	TasteStatus  string   `json:"taste_status,omitempty"`
	Notes        string   `json:"notes"`
	PhotoRefs    []string `json:"photo_refs"`
}

func (r submitRequest) toSubmission() validate.Submission {
	return validate.Submission{
		SubmissionID: r.SubmissionID,
		Scope: model.ScopeKey{
			UserID:       r.UserID,
			RestaurantID: r.RestaurantID,
			DishTypeID:   r.DishTypeID,
		},
		DishID:    r.DishID,
		Position:  r.Position,
		Status:    model.TasteStatus(r.TasteStatus),
		Notes:     r.Notes,
		PhotoRefs: r.PhotoRefs,
	}
}

// RankingsHandler handles ranking submissions.
type RankingsHandler struct {
	deps    Dependencies
	limiter *rate.Limiter // nil disables throttling
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps Dependencies, limiter *rate.Limiter) *RankingsHandler {
	return &RankingsHandler{deps: deps, limiter: limiter}
}

// HandleSubmit handles POST /rankings requests.
func (h *RankingsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if h.limiter != nil && !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.Submit(r.Context(), req.toSubmission())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
