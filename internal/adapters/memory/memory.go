// Package memory is the in-memory store for teams, rounds and reviews.
// It is the default backing store for a single facilitator session and the
// reference implementation of the persistence ports.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/venturedesk/internal/domain/model"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock overrides the time source used for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store keeps all session state behind one RWMutex. Reads hand out copies,
// so callers can never mutate stored state in place.
type Store struct {
	mu      sync.RWMutex
	teams   map[string]model.Team
	rounds  map[string][]model.Round        // ascending by round number
	reviews map[string]map[int]model.Review // team -> round -> review
	now     func() time.Time
}

// New creates an empty store with configuration options.
func New(opts ...Option) *Store {
	s := &Store{
		teams:   make(map[string]model.Team),
		rounds:  make(map[string][]model.Round),
		reviews: make(map[string]map[int]model.Review),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTeam adds a new team. Returns ErrTeamExists for a duplicate ID.
func (s *Store) RegisterTeam(_ context.Context, team model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.teams[team.ID]; exists {
		return ErrTeamExists
	}
	s.teams[team.ID] = team
	return nil
}

// Team returns one team by ID.
func (s *Store) Team(_ context.Context, teamID string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, ok := s.teams[teamID]
	if !ok {
		return model.Team{}, ErrTeamNotFound
	}
	return team, nil
}

// Teams returns all teams ordered by ID.
func (s *Store) Teams(_ context.Context) ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SubmitRound stores a new round snapshot. A round is immutable once
// submitted: re-submitting the same number returns ErrRoundExists. The
// team's current round advances to the highest submitted number.
func (s *Store) SubmitRound(_ context.Context, round model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.teams[round.TeamID]
	if !ok {
		return ErrTeamNotFound
	}
	if round.Number < 1 {
		return ErrInvalidRound
	}
	for _, existing := range s.rounds[round.TeamID] {
		if existing.Number == round.Number {
			return ErrRoundExists
		}
	}

	if round.SubmittedAt.IsZero() {
		round.SubmittedAt = s.now()
	}
	s.rounds[round.TeamID] = append(s.rounds[round.TeamID], round)
	sort.Slice(s.rounds[round.TeamID], func(i, j int) bool {
		return s.rounds[round.TeamID][i].Number < s.rounds[round.TeamID][j].Number
	})

	if round.Number > team.CurrentRound {
		team.CurrentRound = round.Number
	}
	if team.Status == model.StatusRegistered {
		team.Status = model.StatusPlaying
	}
	s.teams[round.TeamID] = team
	return nil
}

// Rounds returns a team's rounds in ascending round order. Missing
// intermediate rounds are permitted; the slice carries whatever was
// actually submitted.
func (s *Store) Rounds(_ context.Context, teamID string) ([]model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.teams[teamID]; !ok {
		return nil, ErrTeamNotFound
	}
	out := make([]model.Round, len(s.rounds[teamID]))
	copy(out, s.rounds[teamID])
	return out, nil
}

// Review returns the review for (team, round) and whether one exists.
func (s *Store) Review(_ context.Context, teamID string, round int) (model.Review, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rev, ok := s.reviews[teamID][round]
	if !ok {
		return model.Review{}, false, nil
	}
	return rev.Clone(), true, nil
}

// SaveReview persists the full review document.
func (s *Store) SaveReview(_ context.Context, rev model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[rev.TeamID]; !ok {
		s.reviews[rev.TeamID] = make(map[int]model.Review)
	}
	s.reviews[rev.TeamID][rev.RoundNumber] = rev.Clone()
	return nil
}

// ApplyTeamStatus applies a status-change intent. Negative round fields in
// the intent leave the stored value untouched.
func (s *Store) ApplyTeamStatus(_ context.Context, change model.TeamStatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.teams[change.TeamID]
	if !ok {
		return ErrTeamNotFound
	}
	team.Status = change.Status
	if change.LastApprovedRound >= 0 {
		team.LastApprovedRound = change.LastApprovedRound
	}
	if change.CurrentRound >= 0 {
		team.CurrentRound = change.CurrentRound
	}
	s.teams[change.TeamID] = team
	return nil
}
