package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrPersistence wraps storage-layer failures. Retryable by the caller;
	// never swallowed, since a silent failure would desynchronize history
	// from the ranking rows.
	ErrPersistence = errors.New("persistence failure")
)
