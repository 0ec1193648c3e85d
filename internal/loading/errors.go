package loading

import "errors"

// Domain errors for the loading package.
var (
	// ErrInvalidSiding is returned when a launch request has no siding.
	ErrInvalidSiding = errors.New("loading: siding is required")

	// ErrInvalidMaxBags is returned when a launch request's target bag count
	// is not a positive integer.
	ErrInvalidMaxBags = errors.New("loading: max_bags must be positive")

	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = errors.New("loading: session not found")
)
