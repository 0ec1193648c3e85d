package wagon

import "errors"

// Domain errors for the wagon package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, wagon.ErrWagonNotFound) {
//	    // handle not found case
//	}
var (
	// ErrWagonNotFound is returned when a wagon ID does not exist.
	ErrWagonNotFound = errors.New("wagon: not found")

	// ErrWagonNotPending is returned by IncrementLoaded when the guarded
	// increment matched no row: the wagon is already complete, was removed,
	// or a concurrent driver raced it to the target count. Callers treat
	// this as "already done, move on", not as a failure.
	ErrWagonNotPending = errors.New("wagon: not pending")

	// ErrNumberAssigned is returned when assigning a display number to a
	// wagon that already has one. Display numbers are a one-time assignment.
	ErrNumberAssigned = errors.New("wagon: number already assigned")

	// ErrNumberTaken is returned when the display number is already used by
	// another wagon on the same siding.
	ErrNumberTaken = errors.New("wagon: number already taken")

	// ErrInvalidRecord is returned when record validation fails on create.
	ErrInvalidRecord = errors.New("wagon: invalid record")
)
