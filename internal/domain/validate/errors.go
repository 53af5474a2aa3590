package validate

import "errors"

// Sentinel kinds for submission validation errors. These map one-to-one onto
// the client-facing error taxonomy and are never retried.
var (
	ErrInvalidJudgment      = errors.New("invalid judgment: exactly one of position and taste status must be set")
	ErrMissingDocumentation = errors.New("missing documentation: notes and at least one photo are required")
	ErrOutOfRange           = errors.New("position out of range")
	ErrInvalidSubmission    = errors.New("invalid submission")
)
