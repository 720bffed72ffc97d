package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/venturedesk/internal/simdata"
	"github.com/okian/venturedesk/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumTeams    = 20
	defaultRounds      = 4
	defaultTopN        = 25
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSeedTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numTeams = flag.Int("teams", defaultNumTeams, "Number of teams to register")
		rounds   = flag.Int("rounds", defaultRounds, "Rounds submitted per team")
		topN     = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		review   = flag.Bool("review", false, "Run a facilitator pass approving each team's last round")
		logFile  = flag.String("log", "", "Log file for seed output (default: seed_log_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simdata.ShowHelp()
		return
	}

	if err := simdata.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			os.Stderr.WriteString("Invalid log level: " + err.Error() + "\n")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSeedTimeout)
	defer cancel()

	config := simdata.Config{
		BaseURL:  *baseURL,
		NumTeams: *numTeams,
		Rounds:   *rounds,
		TopN:     *topN,
		Workers:  *workers,
		Timeout:  *timeout,
		Review:   *review,
		LogFile:  *logFile,
		Verbose:  *verbose,
	}

	if err := simdata.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seed run failed: " + err.Error() + "\n")
		return
	}
}
