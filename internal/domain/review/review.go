// Package review implements the per-round review state machine: contract
// checks, the override ledger, and the approve/reject transitions.
//
// The workflow never mutates the Team record itself. Decisions are emitted
// as TeamStatusChange intents through the Store port, and the persistence
// layer applies them.
package review

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/venturedesk/internal/domain/contracts"
	"github.com/okian/venturedesk/internal/domain/model"
	"github.com/okian/venturedesk/internal/domain/progress"
	"github.com/okian/venturedesk/pkg/logger"
	"github.com/okian/venturedesk/pkg/metrics"
)

// Detail is the read view a facilitator works from: the review document plus
// the round's required contracts, the expert contracts its activity history
// triggered, and progress warnings, all resolved in one fetch.
type Detail struct {
	Review            model.Review               `json:"review"`
	RequiredContracts []string                   `json:"required_contracts"`
	ExpertContracts   []contracts.ExpertContract `json:"expert_contracts,omitempty"`
	Warnings          []progress.Warning         `json:"warnings,omitempty"`
}

// roundUnchanged marks a TeamStatusChange field the store must not touch.
const roundUnchanged = -1

// Store is what the workflow needs from the persistence layer.
type Store interface {
	// Review returns the stored review for (team, round), or false when no
	// facilitator interaction happened yet.
	Review(ctx context.Context, teamID string, round int) (model.Review, bool, error)

	// SaveReview persists the full review document.
	SaveReview(ctx context.Context, rev model.Review) error

	// ApplyTeamStatus applies a status-change intent to the team record.
	ApplyTeamStatus(ctx context.Context, change model.TeamStatusChange) error
}

// OverridableFields lists the numeric field paths a facilitator may correct.
var OverridableFields = []string{
	"funding.revenue",
	"funding.subsidy",
	"funding.subsidyFee",
	"funding.investment",
	"funding.investorEquity",
	"funding.loan",
	"funding.loanInterest",
}

// Workflow drives review state for all teams of a game session.
type Workflow struct {
	store  Store
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Workflow.
type Option func(*Workflow)

// WithClock overrides the timestamp source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets a custom logger for the workflow.
func WithLogger(l logger.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorkflow creates a workflow bound to a store.
func NewWorkflow(store Store, opts ...Option) *Workflow {
	w := &Workflow{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("review")
	}
	return w
}

// load returns the committed review for (team, round), creating an empty
// pending one on first facilitator interaction.
func (w *Workflow) load(ctx context.Context, teamID string, round int) (model.Review, error) {
	rev, ok, err := w.store.Review(ctx, teamID, round)
	if err != nil {
		return model.Review{}, fmt.Errorf("%w: load review: %w", ErrPersistence, err)
	}
	if !ok {
		rev = model.NewReview(teamID, round)
	}
	return rev, nil
}

// RecordContractCheck upserts one contract verdict. It never changes the
// review status; checks apply optimistically since they are non-terminal.
func (w *Workflow) RecordContractCheck(ctx context.Context, teamID string, round int, contractType string, check model.ContractCheck) (model.Review, error) {
	if strings.TrimSpace(contractType) == "" {
		return model.Review{}, fmt.Errorf("%w: contract type is required", ErrValidation)
	}
	rev, err := w.load(ctx, teamID, round)
	if err != nil {
		return model.Review{}, err
	}
	next := rev.Clone()
	next.ContractChecks[contractType] = check
	next.ReviewedAt = w.now()
	if err := w.store.SaveReview(ctx, next); err != nil {
		return model.Review{}, fmt.Errorf("%w: save contract check: %w", ErrPersistence, err)
	}
	metrics.RecordContractCheck()
	return next, nil
}

// AddOverride appends or replaces a ledger entry for a field path. The
// original value from the first override is preserved so the audit trail
// always shows what the team actually submitted.
func (w *Workflow) AddOverride(ctx context.Context, teamID string, round int, field string, original, corrected float64, reason string) (model.Review, error) {
	if !overridable(field) {
		return model.Review{}, fmt.Errorf("%w: field %q cannot be overridden", ErrValidation, field)
	}
	if strings.TrimSpace(reason) == "" {
		return model.Review{}, fmt.Errorf("%w: override reason is required", ErrValidation)
	}
	if math.IsNaN(corrected) || math.IsInf(corrected, 0) {
		return model.Review{}, fmt.Errorf("%w: corrected value must be a number", ErrValidation)
	}
	rev, err := w.load(ctx, teamID, round)
	if err != nil {
		return model.Review{}, err
	}
	next := rev.Clone()
	entry := model.Override{
		Field:     field,
		Original:  original,
		Corrected: corrected,
		Reason:    reason,
		CreatedAt: w.now(),
	}
	if prev, ok := next.Overrides[field]; ok {
		entry.Original = prev.Original
	}
	next.Overrides[field] = entry
	next.ReviewedAt = w.now()
	if err := w.store.SaveReview(ctx, next); err != nil {
		return model.Review{}, fmt.Errorf("%w: save override: %w", ErrPersistence, err)
	}
	metrics.RecordOverride()
	w.logger.Info(ctx, "override recorded",
		logger.String("teamID", teamID),
		logger.Int("round", round),
		logger.String("field", field),
	)
	return next, nil
}

// Approve transitions the review to approved, provided every required
// contract has an explicit approval. On success it emits the intent to move
// the team to playing with lastApprovedRound set.
func (w *Workflow) Approve(ctx context.Context, teamID string, round int, required []contracts.Type, reviewer string) (model.Review, error) {
	rev, err := w.load(ctx, teamID, round)
	if err != nil {
		return model.Review{}, err
	}
	var missing []string
	for _, c := range required {
		chk, ok := rev.ContractChecks[string(c)]
		if !ok || chk.Approved == nil || !*chk.Approved {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		metrics.RecordIncompleteVerification()
		return model.Review{}, fmt.Errorf("%w: unapproved contracts: %s", ErrIncompleteVerification, strings.Join(missing, ", "))
	}

	next := rev.Clone()
	next.Status = model.ReviewApproved
	next.RejectionReason = ""
	next.ReviewedBy = reviewer
	next.ReviewedAt = w.now()
	if err := w.store.SaveReview(ctx, next); err != nil {
		return model.Review{}, fmt.Errorf("%w: save approval: %w", ErrPersistence, err)
	}
	if err := w.store.ApplyTeamStatus(ctx, model.TeamStatusChange{
		TeamID:            teamID,
		Status:            model.StatusPlaying,
		LastApprovedRound: round,
		CurrentRound:      roundUnchanged,
	}); err != nil {
		return model.Review{}, fmt.Errorf("%w: apply team status: %w", ErrPersistence, err)
	}
	metrics.RecordReviewApproved()
	w.logger.Info(ctx, "round approved",
		logger.String("teamID", teamID),
		logger.Int("round", round),
		logger.String("reviewer", reviewer),
	)
	return next, nil
}

// Reject transitions the review to rejected and emits the intent to block
// the team. Rejection is not destructive: the team can be reviewed again
// after an explicit reset.
func (w *Workflow) Reject(ctx context.Context, teamID string, round int, reviewer, reason string) (model.Review, error) {
	if strings.TrimSpace(reason) == "" {
		return model.Review{}, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}
	rev, err := w.load(ctx, teamID, round)
	if err != nil {
		return model.Review{}, err
	}
	next := rev.Clone()
	next.Status = model.ReviewRejected
	next.RejectionReason = reason
	next.ReviewedBy = reviewer
	next.ReviewedAt = w.now()
	if err := w.store.SaveReview(ctx, next); err != nil {
		return model.Review{}, fmt.Errorf("%w: save rejection: %w", ErrPersistence, err)
	}
	if err := w.store.ApplyTeamStatus(ctx, model.TeamStatusChange{
		TeamID:            teamID,
		Status:            model.StatusBlocked,
		LastApprovedRound: roundUnchanged,
		CurrentRound:      roundUnchanged,
	}); err != nil {
		return model.Review{}, fmt.Errorf("%w: apply team status: %w", ErrPersistence, err)
	}
	metrics.RecordReviewRejected()
	w.logger.Info(ctx, "round rejected",
		logger.String("teamID", teamID),
		logger.Int("round", round),
		logger.String("reviewer", reviewer),
	)
	return next, nil
}

// SaveNotes stores free-text facilitator notes. A non-blocking side channel:
// always succeeds locally, independent of review status.
func (w *Workflow) SaveNotes(ctx context.Context, teamID string, round int, notes string) (model.Review, error) {
	rev, err := w.load(ctx, teamID, round)
	if err != nil {
		return model.Review{}, err
	}
	next := rev.Clone()
	next.Notes = notes
	next.ReviewedAt = w.now()
	if err := w.store.SaveReview(ctx, next); err != nil {
		return model.Review{}, fmt.Errorf("%w: save notes: %w", ErrPersistence, err)
	}
	return next, nil
}

// ResetTeam is the explicit remediation action: it clears the team back to
// round zero and restores playing status. Rejected reviews stay on record;
// the reset is what makes the rejected -> pending path reachable.
func (w *Workflow) ResetTeam(ctx context.Context, teamID string) error {
	if err := w.store.ApplyTeamStatus(ctx, model.TeamStatusChange{
		TeamID:            teamID,
		Status:            model.StatusPlaying,
		LastApprovedRound: roundUnchanged,
		CurrentRound:      0,
	}); err != nil {
		return fmt.Errorf("%w: reset team: %w", ErrPersistence, err)
	}
	w.logger.Info(ctx, "team reset", logger.String("teamID", teamID))
	return nil
}

func overridable(field string) bool {
	for _, f := range OverridableFields {
		if f == field {
			return true
		}
	}
	return false
}
