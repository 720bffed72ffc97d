// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/venturedesk/internal/domain/model"
)

// TeamDependencies defines the interface for team lifecycle operations.
type TeamDependencies interface {
	RegisterTeam(ctx context.Context, team model.Team) (model.Team, error)
	Teams(ctx context.Context) ([]model.Team, error)
	SubmitRound(ctx context.Context, round model.Round) error
	ResetTeam(ctx context.Context, teamID string) error
}

// TeamsHandler handles team registration, listing, submissions and resets.
type TeamsHandler struct {
	deps TeamDependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamDependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

// registerRequest is the POST /teams payload.
type registerRequest struct {
	ID     string `json:"id,omitempty"`
	GameID string `json:"game_id"`
	Name   string `json:"name"`
	Mode   string `json:"game_mode"`
}

func (req registerRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("missing name")
	}
	switch model.GameMode(req.Mode) {
	case model.ModeStartup, model.ModeResearch, "":
		return nil
	default:
		return fmt.Errorf("unknown game_mode %q", req.Mode)
	}
}

// HandleRegisterTeam handles POST /teams requests.
func (h *TeamsHandler) HandleRegisterTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_team"
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}

	mode := model.GameMode(req.Mode)
	if mode == "" {
		mode = model.ModeStartup
	}
	team, err := h.deps.RegisterTeam(r.Context(), model.Team{
		ID:     req.ID,
		GameID: req.GameID,
		Name:   req.Name,
		Mode:   mode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// HandleListTeams handles GET /teams requests.
func (h *TeamsHandler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.deps.Teams(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleSubmitRound handles POST /teams/{id}/rounds requests. The body is a
// round document; the team ID always comes from the path.
func (h *TeamsHandler) HandleSubmitRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_round"
	var round model.Round
	if err := json.NewDecoder(r.Body).Decode(&round); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	round.TeamID = r.PathValue("id")
	if round.Number < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: round must be >= 1", op, ErrBadRequest))
		return
	}
	if err := h.deps.SubmitRound(r.Context(), round); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "round": round.Number})
}

// HandleResetTeam handles POST /teams/{id}/reset requests.
func (h *TeamsHandler) HandleResetTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ResetTeam(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
