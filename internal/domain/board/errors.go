package board

import "errors"

// Sentinel kinds for slot board errors.
var (
	ErrCorruptScope    = errors.New("scope holds conflicting positions")
	ErrUnknownDish     = errors.New("dish not tracked in scope")
	ErrInvalidPosition = errors.New("position outside the board")
)
