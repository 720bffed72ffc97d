package simdata

import "time"

// Config holds configuration for the seed run.
type Config struct {
	BaseURL  string        // Base URL of the service
	NumTeams int           // Number of teams to register
	Rounds   int           // Rounds submitted per team
	TopN     int           // Number of top entries to fetch
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Review   bool          // Run a facilitator pass over the last round
	LogFile  string        // Log file for seed output
	Verbose  bool          // Enable verbose logging
}

// Team mirrors the POST /teams payload and its response.
type Team struct {
	ID     string `json:"id,omitempty"`
	GameID string `json:"game_id"`
	Name   string `json:"name"`
	Mode   string `json:"game_mode"`
}

// Round mirrors the POST /teams/{id}/rounds payload.
type Round struct {
	Number     int             `json:"round"`
	Activities map[string]bool `json:"activities,omitempty"`
	Funding    Funding         `json:"funding"`
	Progress   Progress        `json:"progress"`
	Founders   int             `json:"founders"`
	Employees  int             `json:"employees"`
	LegalForm  string          `json:"legal_form,omitempty"`
	Office     string          `json:"office,omitempty"`
}

// Funding is the per-round money movement block.
type Funding struct {
	Investment float64 `json:"investment"`
	Loan       float64 `json:"loan"`
	Subsidy    float64 `json:"subsidy"`
	Revenue    float64 `json:"revenue"`
}

// Progress is the cumulative progress block.
type Progress struct {
	Cash             float64 `json:"cash"`
	DevelopmentHours int     `json:"development_hours"`
	InterviewsTotal  int     `json:"interviews_total"`
	ValidationsTotal int     `json:"validations_total"`
	TRL              int     `json:"current_trl"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank   int     `json:"rank"`
	TeamID string  `json:"team_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Band   string  `json:"band"`
}

// Stats holds seed run statistics.
type Stats struct {
	TeamsRegistered    int
	RoundsSubmitted    int
	RoundsFailed       int
	ReviewsApproved    int
	ReviewsFailed      int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
