// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
)

// StatsProvider exposes runtime counters from the ranking service.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves a JSON snapshot of service counters, distinct
// from the Prometheus exposition on the health endpoint.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler backed by the given provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(h.provider.GetStats())
}
