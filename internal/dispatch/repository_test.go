package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the dispatch_records table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE dispatch_records (
			id TEXT PRIMARY KEY,
			siding TEXT NOT NULL,
			wagon_number TEXT NOT NULL,
			destination TEXT,
			dispatched_at TEXT NOT NULL
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

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("assigns id and departure time", func(t *testing.T) {
		record := &Record{Siding: "S1", WagonNumber: "WGN-001"}
		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if record.ID == "" {
			t.Error("Create() did not assign an ID")
		}
		if record.DispatchedAt.IsZero() {
			t.Error("Create() did not stamp DispatchedAt")
		}
	})

	t.Run("stores destination when present", func(t *testing.T) {
		destination := "Port Elevator 4"
		record := &Record{Siding: "S1", WagonNumber: "WGN-002", Destination: &destination}
		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.List(ctx, "S1", 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		var found *Record
		for i := range got {
			if got[i].ID == record.ID {
				found = &got[i]
			}
		}
		if found == nil {
			t.Fatal("created record not returned by List()")
		}
		if found.Destination == nil || *found.Destination != destination {
			t.Errorf("Destination = %v, want %q", found.Destination, destination)
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		if err := repo.Create(ctx, &Record{WagonNumber: "WGN-003"}); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Create() without siding error = %v, want ErrInvalidRecord", err)
		}
		if err := repo.Create(ctx, &Record{Siding: "S1"}); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Create() without wagon number error = %v, want ErrInvalidRecord", err)
		}
	})
}

func TestSQLiteRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seed := []Record{
		{Siding: "S1", WagonNumber: "WGN-001", DispatchedAt: base},
		{Siding: "S1", WagonNumber: "WGN-002", DispatchedAt: base.Add(time.Minute)},
		{Siding: "S2", WagonNumber: "WGN-001", DispatchedAt: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := repo.List(ctx, "", 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("List() returned %d records, want 3", len(got))
		}
		if got[0].Siding != "S2" {
			t.Errorf("newest record siding = %q, want S2", got[0].Siding)
		}
	})

	t.Run("filters by siding with limit", func(t *testing.T) {
		got, err := repo.List(ctx, "S1", 1)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("List() returned %d records, want 1", len(got))
		}
		if got[0].WagonNumber != "WGN-002" {
			t.Errorf("WagonNumber = %q, want WGN-002", got[0].WagonNumber)
		}
	})

	t.Run("purge removes everything", func(t *testing.T) {
		if err := repo.PurgeAll(ctx); err != nil {
			t.Fatalf("PurgeAll() error = %v", err)
		}
		got, err := repo.List(ctx, "", 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("List() returned %d records after purge, want 0", len(got))
		}
	})
}
