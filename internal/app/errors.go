package app

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrContention is returned when a submission cannot take its scope-key
	// lock within the configured timeout. Transient; callers retry with
	// backoff.
	ErrContention = errors.New("scope contention")

	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
)
