package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrInvalidRecord is returned when a dispatch record fails validation.
	ErrInvalidRecord = errors.New("dispatch: invalid record")
)
