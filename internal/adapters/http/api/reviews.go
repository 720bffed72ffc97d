// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/venturedesk/internal/domain/model"
	"github.com/okian/venturedesk/internal/domain/review"
)

// ReviewDependencies defines the interface for facilitator review operations.
type ReviewDependencies interface {
	ReviewDetail(ctx context.Context, teamID string, round int) (review.Detail, error)
	RecordContractCheck(ctx context.Context, teamID string, round int, contractType string, check model.ContractCheck) (model.Review, error)
	AddOverride(ctx context.Context, teamID string, round int, field string, corrected float64, reason string) (model.Review, error)
	Approve(ctx context.Context, teamID string, round int, reviewer string) (model.Review, error)
	Reject(ctx context.Context, teamID string, round int, reviewer, reason string) (model.Review, error)
	SaveNotes(ctx context.Context, teamID string, round int, notes string) (model.Review, error)
}

// ReviewsHandler handles facilitator review requests.
type ReviewsHandler struct {
	deps ReviewDependencies
}

// NewReviewsHandler creates a new reviews handler.
func NewReviewsHandler(deps ReviewDependencies) *ReviewsHandler {
	return &ReviewsHandler{deps: deps}
}

type checkRequest struct {
	ContractType string `json:"contract_type"`
	Approved     *bool  `json:"approved,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

type overrideRequest struct {
	Field     string  `json:"field"`
	Corrected float64 `json:"corrected"`
	Reason    string  `json:"reason"`
}

type approveRequest struct {
	Reviewer string `json:"reviewer"`
}

type rejectRequest struct {
	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// HandleGetReview handles GET /teams/{id}/reviews/{round} requests.
func (h *ReviewsHandler) HandleGetReview(w http.ResponseWriter, r *http.Request) {
	teamID, round, ok := reviewPath(w, r)
	if !ok {
		return
	}
	detail, err := h.deps.ReviewDetail(r.Context(), teamID, round)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleContractCheck handles POST /teams/{id}/reviews/{round}/checks requests.
func (h *ReviewsHandler) HandleContractCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.contract_check"
	teamID, round, ok := reviewPath(w, r)
	if !ok {
		return
	}
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	rev, err := h.deps.RecordContractCheck(r.Context(), teamID, round, req.ContractType, model.ContractCheck{
		Checked:  true,
		Approved: req.Approved,
		Comment:  req.Comment,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// HandleOverride handles POST /teams/{id}/reviews/{round}/overrides requests.
func (h *ReviewsHandler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	const op = "api.override"
	teamID, round, ok := reviewPath(w, r)
	if !ok {
		return
	}
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	rev, err := h.deps.AddOverride(r.Context(), teamID, round, req.Field, req.Corrected, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// HandleApprove handles POST /teams/{id}/reviews/{round}/approve requests.
func (h *ReviewsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	const op = "api.approve"
	teamID, round, ok := reviewPath(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	rev, err := h.deps.Approve(r.Context(), teamID, round, req.Reviewer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// HandleReject handles POST /teams/{id}/reviews/{round}/reject requests.
func (h *ReviewsHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	const op = "api.reject"
	teamID, round, ok := reviewPath(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	rev, err := h.deps.Reject(r.Context(), teamID, round, req.Reviewer, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// HandleSaveNotes handles PUT /teams/{id}/reviews/{round}/notes requests.
func (h *ReviewsHandler) HandleSaveNotes(w http.ResponseWriter, r *http.Request) {
	const op = "api.notes"
	teamID, round, ok := reviewPath(w, r)
	if !ok {
		return
	}
	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	rev, err := h.deps.SaveNotes(r.Context(), teamID, round, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// reviewPath extracts and validates the {id} and {round} path parameters,
// writing a 400 itself when they are unusable.
func reviewPath(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	teamID := r.PathValue("id")
	round, err := strconv.Atoi(r.PathValue("round"))
	if teamID == "" || err != nil || round < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: round must be a positive integer", ErrBadRequest))
		return "", 0, false
	}
	return teamID, round, true
}
