package events

import "errors"

// Sentinel kinds for publication errors.
var (
	ErrQueueClosed = errors.New("publish queue closed")
	ErrQueueFull   = errors.New("publish queue full")
	ErrPublish     = errors.New("publish failed")
)
