// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	updatequeue "github.com/okian/venturedesk/internal/adapters/mq/queue"
	workerpool "github.com/okian/venturedesk/internal/adapters/mq/worker"
	"github.com/okian/venturedesk/internal/domain/contracts"
	"github.com/okian/venturedesk/internal/domain/model"
	"github.com/okian/venturedesk/internal/domain/pending"
	"github.com/okian/venturedesk/internal/domain/progress"
	"github.com/okian/venturedesk/internal/domain/review"
	"github.com/okian/venturedesk/internal/domain/scoring"
	"github.com/okian/venturedesk/internal/domain/types"
	"github.com/okian/venturedesk/internal/leaderboard"
	"github.com/okian/venturedesk/pkg/logger"
	"github.com/okian/venturedesk/pkg/metrics"
)

// Store is the persistence port the service depends on. Both the in-memory
// and the Postgres adapters satisfy it; it is a superset of review.Store.
type Store interface {
	RegisterTeam(ctx context.Context, team model.Team) error
	Team(ctx context.Context, teamID string) (model.Team, error)
	Teams(ctx context.Context) ([]model.Team, error)
	SubmitRound(ctx context.Context, round model.Round) error
	Rounds(ctx context.Context, teamID string) ([]model.Round, error)
	Review(ctx context.Context, teamID string, round int) (model.Review, bool, error)
	SaveReview(ctx context.Context, rev model.Review) error
	ApplyTeamStatus(ctx context.Context, change model.TeamStatusChange) error
}

// Service wires the review workflow, scoring engine and leaderboard pipeline
// behind the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      Store
	workflow   *review.Workflow
	engine     *scoring.Engine
	aggregator *leaderboard.Aggregator
	tracker    pending.Tracker
	queue      updatequeue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	fetchTimeout  time.Duration
	metricWeights map[string]float64

	// State
	started bool

	logger logger.Logger
	now    func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence adapter. Required before Start.
func WithStore(store Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithFetchTimeout bounds a single team refresh.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithMetricWeights overrides the scoring weights per metric name.
func WithMetricWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.metricWeights = weights
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    10000,
		fetchTimeout: 5 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return fmt.Errorf("%w: no store configured", ErrNotConfigured)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting review service...")

	s.engine = scoring.NewEngine(scoring.WithWeights(s.metricWeights))
	s.workflow = review.NewWorkflow(s.store, review.WithClock(s.now))
	s.aggregator = leaderboard.New()
	s.tracker = pending.NewInMemoryTracker()
	s.queue = updatequeue.NewInMemoryQueue(
		updatequeue.WithCapacity(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s, s.aggregator, s.tracker,
		workerpool.WithFetchTimeout(s.fetchTimeout),
	)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "review service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping review service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "review service stopped")
}

// notifyTeam schedules an asynchronous score refresh for a team. The pending
// mark collapses bursts of triggers into one queued update per team.
func (s *Service) notifyTeam(ctx context.Context, teamID string) {
	if !s.tracker.MarkPending(ctx, teamID) {
		return
	}
	gen := s.aggregator.NextGeneration(teamID)
	ok := s.queue.Enqueue(ctx, model.TeamUpdate{
		TeamID:      teamID,
		Generation:  gen,
		RequestedAt: s.now(),
	})
	if !ok {
		s.tracker.Clear(ctx, teamID)
		s.logger.Warn(ctx, "update queue full, refresh dropped",
			logger.String("teamID", teamID))
	}
}

// Derive recomputes one team's leaderboard record from the store. It is the
// fetch half of the refresh pipeline; workers call it per queued update.
func (s *Service) Derive(ctx context.Context, teamID string) (leaderboard.Record, error) {
	team, err := s.store.Team(ctx, teamID)
	if err != nil {
		return leaderboard.Record{}, fmt.Errorf("fetch team: %w", err)
	}
	rounds, err := s.store.Rounds(ctx, teamID)
	if err != nil {
		return leaderboard.Record{}, fmt.Errorf("fetch rounds: %w", err)
	}

	var latest *model.Review
	pendingReview := false
	if len(rounds) > 0 {
		last := rounds[len(rounds)-1]
		rev, ok, err := s.store.Review(ctx, teamID, last.Number)
		if err != nil {
			return leaderboard.Record{}, fmt.Errorf("fetch review: %w", err)
		}
		if ok {
			latest = &rev
			pendingReview = rev.Status == model.ReviewPending
		} else {
			pendingReview = true
		}
	}

	resolved := progress.Resolve(team, rounds, latest)
	snap := s.engine.Score(team, resolved)

	return leaderboard.Record{
		Name:          team.Name,
		Status:        team.Status,
		HasRounds:     resolved.HasRounds,
		PendingReview: pendingReview,
		Snapshot:      snap,
	}, nil
}

// RegisterTeam creates a team, assigning an ID when none is given.
func (s *Service) RegisterTeam(ctx context.Context, team model.Team) (model.Team, error) {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	if team.Mode == "" {
		team.Mode = model.ModeStartup
	}
	team.Status = model.StatusRegistered
	if err := s.store.RegisterTeam(ctx, team); err != nil {
		return model.Team{}, err
	}
	s.notifyTeam(ctx, team.ID)
	return team, nil
}

// Teams lists all registered teams.
func (s *Service) Teams(ctx context.Context) ([]model.Team, error) {
	return s.store.Teams(ctx)
}

// SubmitRound stores a round submission and schedules a score refresh.
func (s *Service) SubmitRound(ctx context.Context, round model.Round) error {
	if err := s.store.SubmitRound(ctx, round); err != nil {
		return err
	}
	metrics.RecordRoundSubmitted()
	s.notifyTeam(ctx, round.TeamID)
	return nil
}

// ReviewDetail assembles the facilitator read view for one round: the review
// document plus the contracts the round requires, the expert contracts the
// team's activity history triggered, and progress warnings.
func (s *Service) ReviewDetail(ctx context.Context, teamID string, round int) (review.Detail, error) {
	team, err := s.store.Team(ctx, teamID)
	if err != nil {
		return review.Detail{}, err
	}
	rounds, err := s.store.Rounds(ctx, teamID)
	if err != nil {
		return review.Detail{}, err
	}
	rev, ok, err := s.store.Review(ctx, teamID, round)
	if err != nil {
		return review.Detail{}, fmt.Errorf("%w: load review: %w", review.ErrPersistence, err)
	}
	if !ok {
		rev = model.NewReview(teamID, round)
	}

	detail := review.Detail{
		Review:            rev,
		RequiredContracts: []string{},
		ExpertContracts:   contracts.RequiredExpert(contracts.History(rounds)),
	}
	for _, r := range rounds {
		if r.Number == round {
			detail.RequiredContracts = contracts.Names(contracts.Required(r))
			break
		}
	}
	resolved := progress.Resolve(team, rounds, &rev)
	detail.Warnings = progress.Warnings(resolved)
	return detail, nil
}

// RecordContractCheck records one contract verdict and refreshes the team.
func (s *Service) RecordContractCheck(ctx context.Context, teamID string, round int, contractType string, check model.ContractCheck) (model.Review, error) {
	rev, err := s.workflow.RecordContractCheck(ctx, teamID, round, contractType, check)
	if err != nil {
		return model.Review{}, err
	}
	s.notifyTeam(ctx, teamID)
	return rev, nil
}

// AddOverride corrects a submitted value, looking the original up from the
// round document so the ledger always records what the team reported.
func (s *Service) AddOverride(ctx context.Context, teamID string, round int, field string, corrected float64, reason string) (model.Review, error) {
	doc, err := s.roundDoc(ctx, teamID, round)
	if err != nil {
		return model.Review{}, err
	}
	rev, err := s.workflow.AddOverride(ctx, teamID, round, field, originalValue(doc, field), corrected, reason)
	if err != nil {
		return model.Review{}, err
	}
	s.notifyTeam(ctx, teamID)
	return rev, nil
}

// Approve approves a round once every contract it requires has been verified.
func (s *Service) Approve(ctx context.Context, teamID string, round int, reviewer string) (model.Review, error) {
	doc, err := s.roundDoc(ctx, teamID, round)
	if err != nil {
		return model.Review{}, err
	}
	rev, err := s.workflow.Approve(ctx, teamID, round, contracts.Required(doc), reviewer)
	if err != nil {
		return model.Review{}, err
	}
	s.notifyTeam(ctx, teamID)
	return rev, nil
}

// Reject rejects a round and blocks the team.
func (s *Service) Reject(ctx context.Context, teamID string, round int, reviewer, reason string) (model.Review, error) {
	rev, err := s.workflow.Reject(ctx, teamID, round, reviewer, reason)
	if err != nil {
		return model.Review{}, err
	}
	s.notifyTeam(ctx, teamID)
	return rev, nil
}

// SaveNotes stores facilitator notes on a review.
func (s *Service) SaveNotes(ctx context.Context, teamID string, round int, notes string) (model.Review, error) {
	return s.workflow.SaveNotes(ctx, teamID, round, notes)
}

// ResetTeam clears a team back to round zero and playing status.
func (s *Service) ResetTeam(ctx context.Context, teamID string) error {
	if err := s.workflow.ResetTeam(ctx, teamID); err != nil {
		return err
	}
	s.notifyTeam(ctx, teamID)
	return nil
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.aggregator.TopN(ctx, n)
}

// Rank returns the ranked entry for one team.
func (s *Service) Rank(ctx context.Context, teamID string) (types.Entry, error) {
	return s.aggregator.Rank(ctx, teamID)
}

// Tallies returns session totals from the current board.
func (s *Service) Tallies(ctx context.Context) types.Tallies {
	return s.aggregator.Tallies(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["pendingRefreshes"] = s.tracker.Size()
		stats["teams"] = s.aggregator.Count(ctx)
		stats["tallies"] = s.aggregator.Tallies(ctx)
	}
	return stats
}

// roundDoc fetches the submitted round document a review operation targets.
func (s *Service) roundDoc(ctx context.Context, teamID string, round int) (model.Round, error) {
	rounds, err := s.store.Rounds(ctx, teamID)
	if err != nil {
		return model.Round{}, err
	}
	for _, r := range rounds {
		if r.Number == round {
			return r, nil
		}
	}
	return model.Round{}, fmt.Errorf("%w: round %d was not submitted", review.ErrValidation, round)
}

// originalValue reads the submitted value behind an overridable field path.
// Unknown paths return 0; the workflow rejects them before the value is used.
func originalValue(r model.Round, field string) float64 {
	switch field {
	case "funding.revenue":
		return r.Funding.Revenue
	case "funding.subsidy":
		return r.Funding.Subsidy
	case "funding.subsidyFee":
		return r.Funding.SubsidyFee
	case "funding.investment":
		return r.Funding.Investment
	case "funding.investorEquity":
		return r.Funding.InvestorEquity
	case "funding.loan":
		return r.Funding.Loan
	case "funding.loanInterest":
		return r.Funding.LoanInterest
	default:
		return 0
	}
}
