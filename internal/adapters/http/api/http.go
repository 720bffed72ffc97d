// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/venturedesk/internal/domain/review"
	"github.com/okian/venturedesk/internal/domain/types"
	"github.com/okian/venturedesk/internal/leaderboard"
	"github.com/okian/venturedesk/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	TeamDependencies
	ReviewDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	teamsHandler       *TeamsHandler
	reviewsHandler     *ReviewsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		teamsHandler:       NewTeamsHandler(deps),
		reviewsHandler:     NewReviewsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))

	mux.HandleFunc("POST /teams", MetricsMiddleware(s.teamsHandler.HandleRegisterTeam, "register_team"))
	mux.HandleFunc("GET /teams", MetricsMiddleware(s.teamsHandler.HandleListTeams, "list_teams"))
	mux.HandleFunc("POST /teams/{id}/rounds", MetricsMiddleware(s.teamsHandler.HandleSubmitRound, "submit_round"))
	mux.HandleFunc("POST /teams/{id}/reset", MetricsMiddleware(s.teamsHandler.HandleResetTeam, "reset_team"))
	mux.HandleFunc("GET /teams/{id}/rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))

	mux.HandleFunc("GET /teams/{id}/reviews/{round}", MetricsMiddleware(s.reviewsHandler.HandleGetReview, "get_review"))
	mux.HandleFunc("POST /teams/{id}/reviews/{round}/checks", MetricsMiddleware(s.reviewsHandler.HandleContractCheck, "contract_check"))
	mux.HandleFunc("POST /teams/{id}/reviews/{round}/overrides", MetricsMiddleware(s.reviewsHandler.HandleOverride, "override"))
	mux.HandleFunc("POST /teams/{id}/reviews/{round}/approve", MetricsMiddleware(s.reviewsHandler.HandleApprove, "approve"))
	mux.HandleFunc("POST /teams/{id}/reviews/{round}/reject", MetricsMiddleware(s.reviewsHandler.HandleReject, "reject"))
	mux.HandleFunc("PUT /teams/{id}/reviews/{round}/notes", MetricsMiddleware(s.reviewsHandler.HandleSaveNotes, "notes"))
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

// writeDomainError translates domain error kinds to HTTP responses so every
// handler maps the taxonomy the same way.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, review.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err)
	case errors.Is(err, review.ErrIncompleteVerification):
		writeError(w, http.StatusConflict, "incomplete_verification", err)
	case errors.Is(err, leaderboard.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case isConflict(err):
		writeError(w, http.StatusConflict, "conflict", err)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// isNotFound allows the API to translate upstream not-found errors to 404
// without coupling to every adapter's sentinel.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, leaderboard.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// isConflict catches duplicate-registration style errors from either store
// adapter ("team already registered", "round already submitted").
func isConflict(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already")
}
