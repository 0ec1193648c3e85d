package loading

import (
	"context"
	"errors"
	"fmt"

	"github.com/grainline/wagonloader/internal/wagon"
)

// DefaultWagonPrefix is used when no prefix is configured.
const DefaultWagonPrefix = "WGN"

// Assigner assigns sequential display numbers to pending, unnumbered wagons.
//
// Numbers follow a fixed zero-padded sequence (PREFIX-001, PREFIX-002, ...)
// starting at 1 within each invocation's result set: the sequence numbers
// the currently-pending, currently-unnumbered wagons of this run in
// track-tower order, not a global counter.
type Assigner struct {
	repo   wagon.Repository
	prefix string
}

// NewAssigner creates an assigner using the given display number prefix.
func NewAssigner(repo wagon.Repository, prefix string) *Assigner {
	if prefix == "" {
		prefix = DefaultWagonPrefix
	}
	return &Assigner{
		repo:   repo,
		prefix: prefix,
	}
}

// Assign numbers every pending, unnumbered wagon on the siding and returns
// how many numbers were written.
//
// The operation is idempotent: wagons that already have a display number are
// left untouched, and re-invoking after partial numbering only numbers the
// remainder. If a candidate number is already in use on the siding (a prior
// partial run claimed it), the sequence advances past it; a display number
// is never reused within a reset epoch.
func (a *Assigner) Assign(ctx context.Context, siding string) (int, error) {
	pending, err := a.repo.ListPending(ctx, siding)
	if err != nil {
		return 0, fmt.Errorf("listing pending wagons: %w", err)
	}

	assigned := 0
	seq := 0
	for i := range pending {
		rec := &pending[i]
		if rec.Numbered() {
			continue
		}

		for {
			seq++
			number := fmt.Sprintf("%s-%03d", a.prefix, seq)
			err := a.repo.AssignNumber(ctx, rec.ID, number)
			if errors.Is(err, wagon.ErrNumberTaken) {
				continue // number claimed by an earlier run; try the next one
			}
			if errors.Is(err, wagon.ErrNumberAssigned) {
				break // raced with a concurrent assigner; wagon is numbered
			}
			if err != nil {
				return assigned, fmt.Errorf("numbering wagon %d: %w", rec.ID, err)
			}
			assigned++
			break
		}
	}

	return assigned, nil
}
