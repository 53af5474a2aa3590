// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tablepick/topdish/internal/adapters/repository"
	"github.com/tablepick/topdish/internal/app"
	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/internal/domain/validate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Submit(ctx context.Context, sub validate.Submission) (app.SubmitResult, error)
	DishStats(ctx context.Context, dishID string) (model.DishStats, error)
	UserStats(ctx context.Context, userID string) (model.UserStats, error)
	History(ctx context.Context, userID string) ([]model.HistoryEntry, error)
	CustomLeaderboard(ctx context.Context, crit model.Criterion, limit int) ([]model.LeaderboardEntry, error)
}

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	rankingsHandler    *RankingsHandler
	dishHandler        *DishHandler
	userHandler        *UserHandler
	leaderboardHandler *LeaderboardHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	submitLimiter *rate.Limiter
	maxLimit      int
}

// WithSubmitRateLimit throttles POST /rankings to rps with the given burst.
func WithSubmitRateLimit(rps float64, burst int) ServerOption {
	return func(c *serverConfig) {
		if rps > 0 && burst > 0 {
			c.submitLimiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithMaxLeaderboardLimit caps the leaderboard result size.
func WithMaxLeaderboardLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := &serverConfig{maxLimit: 100}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		rankingsHandler:    NewRankingsHandler(deps, cfg.submitLimiter),
		dishHandler:        NewDishHandler(deps),
		userHandler:        NewUserHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleSubmit, "rankings"))
	mux.HandleFunc("/dishes/", MetricsMiddleware(s.dishHandler.HandleGetDish, "dish_rankings"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.userHandler.HandleGetUser, "user_rankings"))
	mux.HandleFunc("/leaderboard/custom", MetricsMiddleware(s.leaderboardHandler.HandleCustomLeaderboard, "custom_leaderboard"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates the engine's error taxonomy to HTTP.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validate.ErrInvalidJudgment):
		writeError(w, http.StatusBadRequest, "invalid_judgment", err)
	case errors.Is(err, validate.ErrMissingDocumentation):
		writeError(w, http.StatusBadRequest, "missing_documentation", err)
	case errors.Is(err, validate.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, "out_of_range", err)
	case errors.Is(err, validate.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, app.ErrContention):
		// Transient: the caller retries with backoff.
		writeError(w, http.StatusTooManyRequests, "contention", err)
	case errors.Is(err, repository.ErrPersistence):
		// Retryable storage failure, never silently swallowed.
		writeError(w, http.StatusServiceUnavailable, "persistence", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
