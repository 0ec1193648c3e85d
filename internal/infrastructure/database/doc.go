// Package database provides the SQLite connection and migration runner for
// Wagonloader Core.
//
// The wrapper configures WAL mode, a busy timeout, and a single-writer
// connection pool. Loading sessions are write-heavy and SQLite only supports
// one writer at a time, so contention is resolved by the busy timeout rather
// than failed writes.
//
// Migrations are embedded into the binary by the top-level migrations package
// and applied in version order, each in its own transaction:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/wagonloader.db"})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
