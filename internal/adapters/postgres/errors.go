package postgres

import "errors"

// Sentinel kinds for store errors.
var (
	ErrTeamNotFound = errors.New("team not found")
	ErrTeamExists   = errors.New("team already registered")
	ErrRoundExists  = errors.New("round already submitted")
	ErrInvalidRound = errors.New("invalid round number")
)
