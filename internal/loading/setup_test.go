package loading

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grainline/wagonloader/internal/wagon"
)

// setupTestDB creates an in-memory SQLite database with the scheduler tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A second pool connection would see its own empty in-memory database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE wagon_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			siding TEXT NOT NULL,
			tower_number INTEGER NOT NULL,
			wagon_number TEXT,
			loaded_bag_count INTEGER NOT NULL DEFAULT 0,
			loading_complete INTEGER NOT NULL DEFAULT 0,
			loading_start_time TEXT,
			loading_end_time TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE UNIQUE INDEX idx_wagon_records_siding_number ON wagon_records(siding, wagon_number);
		CREATE INDEX idx_wagon_records_pending ON wagon_records(siding, loading_complete, tower_number);

		CREATE TABLE loading_sessions (
			id TEXT PRIMARY KEY,
			siding TEXT NOT NULL,
			max_bags INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'running',
			started_at TEXT NOT NULL,
			completed_at TEXT,
			wagons_loaded INTEGER NOT NULL DEFAULT 0,
			error TEXT
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// seedWagon inserts a pending wagon at the given tower position.
func seedWagon(t *testing.T, repo wagon.Repository, siding string, tower int) *wagon.Record {
	t.Helper()

	record := &wagon.Record{Siding: siding, TowerNumber: tower}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return record
}
