// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank        int     `json:"rank"`
	TeamID      string  `json:"team_id"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Quick       int     `json:"quick_score"`
	BonusPoints float64 `json:"bonus_points"`
	Band        string  `json:"band"`
	Round       int     `json:"round"`
}

// Tallies summarizes a game session for the stats endpoint.
type Tallies struct {
	Teams          int     `json:"teams"`
	Playing        int     `json:"playing"`
	Blocked        int     `json:"blocked"`
	PendingReviews int     `json:"pending_reviews"`
	HighestScore   float64 `json:"highest_score"`
	AverageScore   float64 `json:"average_score"`
}
