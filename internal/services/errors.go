package services

import "errors"

var (
	// ErrInvalidInput marks caller mistakes (bad provider, out-of-range
	// window) that should surface as 400s, not retries.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
)
