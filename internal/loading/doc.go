// Package loading implements the wagon loading scheduler for Wagonloader Core.
//
// The scheduler has three cooperating parts:
//
//   - Assigner: gives pending, unnumbered wagons on a siding their display
//     numbers (WGN-001, WGN-002, ...) in track-tower order.
//   - Driver: processes every pending wagon on a siding to its target bag
//     count, one wagon at a time, via single guarded increments against the
//     wagon store with a fixed pause between bags.
//   - Launcher: validates an incoming train request, registers it with the
//     external train service, records a loading session, and spawns one
//     Driver run as a tracked background task.
//
// # Concurrency
//
// A Driver run is strictly sequential internally (one loading crew per
// siding). Multiple runs may execute in parallel, even on the same siding:
// correctness comes from the store's conditional increment, which lets at
// most one racing driver count any given bag. Start and completion stamps
// are written with IS NULL guards, so races produce wasted polls, never
// corrupted records.
//
// # Usage
//
//	assigner := loading.NewAssigner(repo, "WGN")
//	driver := loading.NewDriver(repo, assigner, delay, log)
//	launcher := loading.NewLauncher(driver, sessions, trains, log)
//	launcher.Start(ctx)
//	defer launcher.Wait()
//
//	sessionID, err := launcher.Launch(ctx, loading.LaunchRequest{
//	    Siding:  "S1",
//	    MaxBags: 50,
//	    Payload: trainPayload,
//	})
package loading
