package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/venturedesk/internal/domain/model"
	"github.com/okian/venturedesk/pkg/logger"
)

const uniqueViolation = "23505"

// Store is the PostgreSQL-backed persistence layer. It exposes the same
// method set as the in-memory store so either can sit behind the service.
type Store struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for schema and query diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps an already connected pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:   pool,
		now:    time.Now,
		logger: logger.Get().Named("postgres"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the tables if they do not exist yet. Safe to run on
// every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id                  text PRIMARY KEY,
			game_id             text NOT NULL DEFAULT '',
			name                text NOT NULL DEFAULT '',
			game_mode           text NOT NULL DEFAULT 'startup',
			status              text NOT NULL DEFAULT 'registered',
			current_round       int  NOT NULL DEFAULT 0,
			last_approved_round int  NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS rounds (
			team_id      text NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			round_number int  NOT NULL,
			payload      jsonb NOT NULL,
			submitted_at timestamptz NOT NULL,
			PRIMARY KEY (team_id, round_number)
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			team_id      text NOT NULL,
			round_number int  NOT NULL,
			payload      jsonb NOT NULL,
			updated_at   timestamptz NOT NULL,
			PRIMARY KEY (team_id, round_number)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	s.logger.Debug(ctx, "schema ensured")
	return nil
}

// RegisterTeam inserts a new team record.
func (s *Store) RegisterTeam(ctx context.Context, team model.Team) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO teams (id, game_id, name, game_mode, status, current_round, last_approved_round)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		team.ID, team.GameID, team.Name, string(team.Mode), string(team.Status),
		team.CurrentRound, team.LastApprovedRound)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrTeamExists, team.ID)
	}
	if err != nil {
		return fmt.Errorf("register team: %w", err)
	}
	return nil
}

// Team fetches a single team by ID.
func (s *Store) Team(ctx context.Context, teamID string) (model.Team, error) {
	return scanTeam(s.pool.QueryRow(ctx,
		`SELECT id, game_id, name, game_mode, status, current_round, last_approved_round
		 FROM teams WHERE id = $1`, teamID), teamID)
}

// Teams returns all teams ordered by ID.
func (s *Store) Teams(ctx context.Context) ([]model.Team, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, game_id, name, game_mode, status, current_round, last_approved_round
		 FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var out []model.Team
	for rows.Next() {
		var t model.Team
		var mode, status string
		if err := rows.Scan(&t.ID, &t.GameID, &t.Name, &mode, &status,
			&t.CurrentRound, &t.LastApprovedRound); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		t.Mode = model.GameMode(mode)
		t.Status = model.TeamStatus(status)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return out, nil
}

// SubmitRound stores an immutable round document and advances the team's
// current round. The insert and the team update commit together.
func (s *Store) SubmitRound(ctx context.Context, round model.Round) error {
	if round.Number < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRound, round.Number)
	}
	if round.SubmittedAt.IsZero() {
		round.SubmittedAt = s.now()
	}

	payload, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("encode round: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM teams WHERE id = $1 FOR UPDATE`,
		round.TeamID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrTeamNotFound, round.TeamID)
	}
	if err != nil {
		return fmt.Errorf("lock team: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO rounds (team_id, round_number, payload, submitted_at)
		 VALUES ($1, $2, $3, $4)`,
		round.TeamID, round.Number, payload, round.SubmittedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: team %s round %d", ErrRoundExists, round.TeamID, round.Number)
	}
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}

	newStatus := status
	if status == string(model.StatusRegistered) {
		newStatus = string(model.StatusPlaying)
	}
	_, err = tx.Exec(ctx,
		`UPDATE teams SET current_round = GREATEST(current_round, $2), status = $3 WHERE id = $1`,
		round.TeamID, round.Number, newStatus)
	if err != nil {
		return fmt.Errorf("advance team round: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit round: %w", err)
	}
	return nil
}

// Rounds returns a team's rounds in ascending order.
func (s *Store) Rounds(ctx context.Context, teamID string) ([]model.Round, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check team: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM rounds WHERE team_id = $1 ORDER BY round_number`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []model.Round
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		var r model.Round
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode round: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	return out, nil
}

// Review fetches the review document for a (team, round). The bool reports
// whether one has been saved yet.
func (s *Store) Review(ctx context.Context, teamID string, round int) (model.Review, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM reviews WHERE team_id = $1 AND round_number = $2`,
		teamID, round).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Review{}, false, nil
	}
	if err != nil {
		return model.Review{}, false, fmt.Errorf("fetch review: %w", err)
	}

	var rev model.Review
	if err := json.Unmarshal(payload, &rev); err != nil {
		return model.Review{}, false, fmt.Errorf("decode review: %w", err)
	}
	return rev, true, nil
}

// SaveReview upserts the review document for its (team, round).
func (s *Store) SaveReview(ctx context.Context, rev model.Review) error {
	payload, err := json.Marshal(rev)
	if err != nil {
		return fmt.Errorf("encode review: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO reviews (team_id, round_number, payload, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (team_id, round_number)
		 DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		rev.TeamID, rev.RoundNumber, payload, s.now())
	if err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	return nil
}

// ApplyTeamStatus applies a status change intent. Negative round fields in
// the intent leave the stored value unchanged.
func (s *Store) ApplyTeamStatus(ctx context.Context, change model.TeamStatusChange) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE teams SET
			status = $2,
			last_approved_round = CASE WHEN $3 >= 0 THEN $3 ELSE last_approved_round END,
			current_round = CASE WHEN $4 >= 0 THEN $4 ELSE current_round END
		 WHERE id = $1`,
		change.TeamID, string(change.Status), change.LastApprovedRound, change.CurrentRound)
	if err != nil {
		return fmt.Errorf("apply status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTeamNotFound, change.TeamID)
	}
	return nil
}

func scanTeam(row pgx.Row, teamID string) (model.Team, error) {
	var t model.Team
	var mode, status string
	err := row.Scan(&t.ID, &t.GameID, &t.Name, &mode, &status,
		&t.CurrentRound, &t.LastApprovedRound)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("fetch team: %w", err)
	}
	t.Mode = model.GameMode(mode)
	t.Status = model.TeamStatus(status)
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
