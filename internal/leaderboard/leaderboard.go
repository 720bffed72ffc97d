// Package leaderboard merges per-team derived records into one ranked,
// consistently ordered view.
//
// Each team's record is recomputed independently and replaced atomically.
// Only the apply step synchronizes: a single writer rebuilds the board and
// publishes it copy-on-write, so readers never observe a half-updated
// ranking. A team whose refresh fails keeps its last-known record.
package leaderboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	model "github.com/okian/venturedesk/internal/domain/model"
	scoring "github.com/okian/venturedesk/internal/domain/scoring"
	types "github.com/okian/venturedesk/internal/domain/types"
	"github.com/okian/venturedesk/pkg/logger"
	"github.com/okian/venturedesk/pkg/metrics"
)

// Record is the last-known derived state for one team. Teams without any
// submitted round carry HasRounds=false: they are excluded from ranking but
// still counted in session tallies.
type Record struct {
	Name          string
	Status        model.TeamStatus
	HasRounds     bool
	PendingReview bool
	Snapshot      scoring.Snapshot
}

// Board is an immutable published view of the ranking.
type Board struct {
	Entries     []types.Entry
	EntryByTeam map[string]types.Entry
	Tallies     types.Tallies
	BuiltAt     time.Time
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for degradation events.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Aggregator holds the last-known-good record per team and recomputes the
// full ranking whenever any one team's record changes.
type Aggregator struct {
	mu      sync.Mutex
	records map[string]Record
	gens    map[string]uint64

	board atomic.Pointer[Board]

	now    func() time.Time
	logger logger.Logger
}

// New constructs an aggregator with configuration options.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		records: make(map[string]Record),
		gens:    make(map[string]uint64),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("leaderboard")
	}
	a.board.Store(&Board{EntryByTeam: map[string]types.Entry{}, BuiltAt: a.now()})
	return a
}

// NextGeneration registers a new refresh intent for a team and returns its
// generation. A later call supersedes earlier ones: results computed under
// an older generation are discarded on apply, never merged.
func (a *Aggregator) NextGeneration(teamID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gens[teamID]++
	return a.gens[teamID]
}

// Apply replaces a team's record and republishes the board. It reports
// whether the record was applied; a stale generation is dropped.
func (a *Aggregator) Apply(ctx context.Context, teamID string, gen uint64, rec Record) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.gens[teamID] {
		metrics.RecordStaleUpdateDiscarded()
		a.logger.Debug(ctx, "discarding stale update",
			logger.String("team_id", teamID),
			logger.Int("generation", int(gen)))
		return false
	}

	a.records[teamID] = rec
	a.rebuild()
	return true
}

// MarkFailed records a failed refresh for a team. The team keeps its
// last-known record so one broken fetch never takes down the whole board.
func (a *Aggregator) MarkFailed(ctx context.Context, teamID string, gen uint64, err error) {
	metrics.RecordLeaderboardFetchFailure()

	a.mu.Lock()
	stale := gen != a.gens[teamID]
	_, known := a.records[teamID]
	a.mu.Unlock()

	a.logger.Warn(ctx, "team refresh failed, keeping last-known record",
		logger.String("team_id", teamID),
		logger.Bool("stale", stale),
		logger.Bool("known", known),
		logger.Error(err))
}

// Forget drops a team from the board entirely, used when a team is removed
// from the session.
func (a *Aggregator) Forget(_ context.Context, teamID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.records[teamID]; !ok {
		return
	}
	delete(a.records, teamID)
	delete(a.gens, teamID)
	a.rebuild()
}

// rebuild recomputes the ranked board from all records and publishes it.
// Caller must hold mu.
func (a *Aggregator) rebuild() {
	start := time.Now()

	snaps := make([]scoring.Snapshot, 0, len(a.records))
	names := make(map[string]string, len(a.records))
	for id, rec := range a.records {
		if !rec.HasRounds {
			continue
		}
		snaps = append(snaps, rec.Snapshot)
		names[id] = rec.Name
	}

	ranked := scoring.Rank(snaps)
	entries := make([]types.Entry, len(ranked))
	byTeam := make(map[string]types.Entry, len(ranked))
	for i, s := range ranked {
		e := types.Entry{
			Rank:        s.Rank,
			TeamID:      s.TeamID,
			Name:        names[s.TeamID],
			Score:       s.TotalScore,
			Quick:       s.Quick,
			BonusPoints: s.BonusPoints,
			Band:        s.Band,
			Round:       s.Round,
		}
		entries[i] = e
		byTeam[s.TeamID] = e
	}

	a.board.Store(&Board{
		Entries:     entries,
		EntryByTeam: byTeam,
		Tallies:     a.tally(entries),
		BuiltAt:     a.now(),
	})

	ms := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordLeaderboardRebuildDuration(ms)
	metrics.UpdateLeaderboardTeams(len(a.records))
}

// tally computes session totals over all records, ranked or not.
// Caller must hold mu.
func (a *Aggregator) tally(entries []types.Entry) types.Tallies {
	t := types.Tallies{Teams: len(a.records)}
	for _, rec := range a.records {
		switch rec.Status {
		case model.StatusPlaying:
			t.Playing++
		case model.StatusBlocked:
			t.Blocked++
		}
		if rec.PendingReview {
			t.PendingReviews++
		}
	}
	var sum float64
	for _, e := range entries {
		sum += e.Score
		if e.Score > t.HighestScore {
			t.HighestScore = e.Score
		}
	}
	if len(entries) > 0 {
		t.AverageScore = sum / float64(len(entries))
	}
	return t
}

// TopN returns the top N ranked entries.
func (a *Aggregator) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("leaderboard", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	entries := a.board.Load().Entries
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]types.Entry, n)
	copy(out, entries[:n])
	return out, nil
}

// Rank returns the current entry for a team. Returns ErrNotFound for
// unknown or not-yet-ranked teams.
func (a *Aggregator) Rank(_ context.Context, teamID string) (types.Entry, error) {
	entry, ok := a.board.Load().EntryByTeam[teamID]
	if !ok {
		metrics.RecordErrorByComponent("leaderboard", "not_found")
		return types.Entry{}, ErrNotFound
	}
	return entry, nil
}

// Tallies returns the session totals from the current board.
func (a *Aggregator) Tallies(_ context.Context) types.Tallies {
	return a.board.Load().Tallies
}

// Count returns the number of teams tracked, including unranked ones.
func (a *Aggregator) Count(_ context.Context) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}
