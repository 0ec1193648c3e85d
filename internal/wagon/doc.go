// Package wagon provides the wagon record store for Wagonloader Core.
//
// A wagon record tracks one wagon parked on a siding: its position, optional
// display number, loaded bag count, and loading timestamps. The package owns
// the persistence invariants the loading scheduler depends on:
//
//   - IncrementLoaded is a single guarded UPDATE returning the new count, so
//     concurrent loading sessions can never double-count a bag or push a
//     wagon past its target.
//   - AssignNumber only fires on unnumbered wagons; a display number is a
//     one-time assignment, unique per siding.
//   - MarkStarted and MarkCompleted only stamp absent timestamps, so each
//     stamp is written at most once regardless of races.
//
// # Usage
//
//	repo := wagon.NewSQLiteRepository(db.DB)
//	count, err := repo.IncrementLoaded(ctx, "S1", "WGN-001", 50)
//	if errors.Is(err, wagon.ErrWagonNotPending) {
//	    // wagon already complete, move to the next one
//	}
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use; every mutation is a single
// self-contained statement and the database package serialises writers.
package wagon
