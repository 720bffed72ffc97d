package review

import "errors"

// Sentinel kinds for review errors. Callers use errors.Is to branch.
var (
	// ErrValidation covers locally rejected input: blank reasons,
	// non-numeric override values, unknown field paths.
	ErrValidation = errors.New("validation failed")

	// ErrIncompleteVerification is returned by Approve while any required
	// contract is still unchecked or unapproved.
	ErrIncompleteVerification = errors.New("incomplete contract verification")

	// ErrPersistence wraps downstream write failures. The in-memory review
	// keeps its prior committed state when a terminal transition fails.
	ErrPersistence = errors.New("persistence failed")
)
