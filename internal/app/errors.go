package service

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNotConfigured = errors.New("service not configured")
)
