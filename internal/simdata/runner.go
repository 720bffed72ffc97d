package simdata

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/venturedesk/pkg/logger"
)

// requiredContracts mirrors the server's rule table for the fields this
// generator fills in, so the facilitator pass can check the right papers.
func requiredContracts(r Round) []string {
	var out []string
	if r.Funding.Loan > 0 {
		out = append(out, "bank")
	}
	if r.Funding.Investment > 0 {
		out = append(out, "investor")
	}
	if r.Office == "incubator" {
		out = append(out, "incubator")
	}
	if r.Funding.Subsidy > 0 {
		out = append(out, "subsidy")
	}
	return out
}

// Run executes the full seed flow: health check, team registration, round
// submission, optional facilitator pass, and a leaderboard readback.
func Run(ctx context.Context, config Config) error {
	stats := Stats{StartTime: time.Now()}
	client := NewHTTPClient(config.BaseURL, config.Timeout)

	logger.Get().Info(ctx, "starting seed run",
		logger.String("base_url", config.BaseURL),
		logger.Int("teams", config.NumTeams),
		logger.Int("rounds", config.Rounds),
		logger.Int("workers", config.Workers))

	if err := client.CheckHealth(ctx); err != nil {
		return fmt.Errorf("service not reachable: %w", err)
	}

	gameID := uuid.NewString()
	teams := GenerateTeams(gameID, config.NumTeams)
	roundsByTeam := make(map[string][]Round, len(teams))
	for _, t := range teams {
		roundsByTeam[t.ID] = GenerateRounds(config.Rounds)
	}

	registered := registerTeams(ctx, client, teams)
	stats.TeamsRegistered = len(registered)
	if len(registered) == 0 {
		return fmt.Errorf("no teams registered")
	}

	submitted, failed := submitRounds(ctx, client, config.Workers, registered, roundsByTeam)
	stats.RoundsSubmitted = submitted
	stats.RoundsFailed = failed

	if config.Review {
		approved, reviewFailed := reviewLastRounds(ctx, client, registered, roundsByTeam)
		stats.ReviewsApproved = approved
		stats.ReviewsFailed = reviewFailed
	}

	// Give the refresh pipeline a moment to drain before reading back.
	time.Sleep(2 * time.Second)

	entries, err := fetchLeaderboard(ctx, client, config.TopN)
	if err != nil {
		logger.Get().Warn(ctx, "leaderboard readback failed", logger.Error(err))
	}
	stats.LeaderboardEntries = len(entries)
	for _, e := range entries {
		logger.Get().Info(ctx, "leaderboard entry",
			logger.Int("rank", e.Rank),
			logger.String("team", e.Name),
			logger.Float64("score", e.Score),
			logger.String("band", e.Band))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayStats(ctx, stats)
	return nil
}

func registerTeams(ctx context.Context, client *HTTPClient, teams []Team) []Team {
	registered := make([]Team, 0, len(teams))
	for _, t := range teams {
		var created Team
		if err := client.PostJSON(ctx, "/teams", t, &created); err != nil {
			logger.Get().Warn(ctx, "team registration failed",
				logger.String("team", t.Name), logger.Error(err))
			continue
		}
		registered = append(registered, created)
	}
	return registered
}

func submitRounds(ctx context.Context, client *HTTPClient, workers int, teams []Team, roundsByTeam map[string][]Round) (int, int) {
	var submitted, failed int64
	jobs := make(chan Team, len(teams))
	for _, t := range teams {
		jobs <- t
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				for _, r := range roundsByTeam[t.ID] {
					path := fmt.Sprintf("/teams/%s/rounds", t.ID)
					if err := client.PostJSON(ctx, path, r, nil); err != nil {
						atomic.AddInt64(&failed, 1)
						logger.Get().Warn(ctx, "round submission failed",
							logger.String("team", t.Name),
							logger.Int("round", r.Number),
							logger.Error(err))
						continue
					}
					atomic.AddInt64(&submitted, 1)
				}
			}
		}()
	}
	wg.Wait()
	return int(submitted), int(failed)
}

func reviewLastRounds(ctx context.Context, client *HTTPClient, teams []Team, roundsByTeam map[string][]Round) (int, int) {
	approved := 0
	failed := 0
	for _, t := range teams {
		rounds := roundsByTeam[t.ID]
		if len(rounds) == 0 {
			continue
		}
		last := rounds[len(rounds)-1]
		base := fmt.Sprintf("/teams/%s/reviews/%d", t.ID, last.Number)

		ok := true
		yes := true
		for _, ct := range requiredContracts(last) {
			payload := map[string]interface{}{
				"contract_type": ct,
				"approved":      &yes,
				"comment":       "seed run",
			}
			if err := client.PostJSON(ctx, base+"/checks", payload, nil); err != nil {
				logger.Get().Warn(ctx, "contract check failed",
					logger.String("team", t.Name),
					logger.String("contract", ct),
					logger.Error(err))
				ok = false
				break
			}
		}
		if !ok {
			failed++
			continue
		}
		if err := client.PostJSON(ctx, base+"/approve", map[string]string{"reviewer": "seed-game"}, nil); err != nil {
			logger.Get().Warn(ctx, "approval failed",
				logger.String("team", t.Name), logger.Error(err))
			failed++
			continue
		}
		approved++
	}
	return approved, failed
}

func fetchLeaderboard(ctx context.Context, client *HTTPClient, topN int) ([]Entry, error) {
	var entries []Entry
	path := fmt.Sprintf("/leaderboard?limit=%d", topN)
	if err := client.GetJSON(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func displayStats(ctx context.Context, stats Stats) {
	logger.Get().Info(ctx, "seed run complete",
		logger.Int("teams_registered", stats.TeamsRegistered),
		logger.Int("rounds_submitted", stats.RoundsSubmitted),
		logger.Int("rounds_failed", stats.RoundsFailed),
		logger.Int("reviews_approved", stats.ReviewsApproved),
		logger.Int("reviews_failed", stats.ReviewsFailed),
		logger.Int("leaderboard_entries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()))
}
