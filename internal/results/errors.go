package results

import "errors"

// Expected, caller-recoverable outcomes. Anything else returned by the
// engine is an internal failure.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadySubmitted = errors.New("already submitted")
)
