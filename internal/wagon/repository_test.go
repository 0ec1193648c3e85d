package wagon

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the wagon_records table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A second pool connection would see its own empty in-memory database.
	// Pinning to one connection also mirrors the production writer pool.
	db.SetMaxOpenConns(1)

	// Create wagon_records table matching the schema
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

// seedWagon inserts a wagon and returns its record.
func seedWagon(t *testing.T, repo *SQLiteRepository, siding string, tower int) *Record {
	t.Helper()

	record := &Record{Siding: siding, TowerNumber: tower}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return record
}

// numberWagon assigns a display number to a seeded wagon.
func numberWagon(t *testing.T, repo *SQLiteRepository, id int64, number string) {
	t.Helper()

	if err := repo.AssignNumber(context.Background(), id, number); err != nil {
		t.Fatalf("AssignNumber(%d, %q) error = %v", id, number, err)
	}
}

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates wagon with defaults", func(t *testing.T) {
		record := &Record{Siding: "S1", TowerNumber: 3}

		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if record.ID == 0 {
			t.Error("Create() did not set ID")
		}

		got, err := repo.GetByID(ctx, record.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Siding != "S1" {
			t.Errorf("Siding = %q, want %q", got.Siding, "S1")
		}
		if got.TowerNumber != 3 {
			t.Errorf("TowerNumber = %d, want 3", got.TowerNumber)
		}
		if got.LoadedBagCount != 0 {
			t.Errorf("LoadedBagCount = %d, want 0", got.LoadedBagCount)
		}
		if got.LoadingComplete {
			t.Error("LoadingComplete = true, want false")
		}
		if got.WagonNumber != nil {
			t.Errorf("WagonNumber = %q, want nil", *got.WagonNumber)
		}
		if got.LoadingStartTime != nil || got.LoadingEndTime != nil {
			t.Error("new wagon has loading timestamps set")
		}
	})

	t.Run("rejects missing siding", func(t *testing.T) {
		err := repo.Create(ctx, &Record{TowerNumber: 1})
		if !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Create() error = %v, want ErrInvalidRecord", err)
		}
	})

	t.Run("rejects negative tower number", func(t *testing.T) {
		err := repo.Create(ctx, &Record{Siding: "S1", TowerNumber: -1})
		if !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Create() error = %v, want ErrInvalidRecord", err)
		}
	})

	t.Run("rejects duplicate number on same siding", func(t *testing.T) {
		number := "WGN-900"
		first := &Record{Siding: "S-dup", TowerNumber: 1, WagonNumber: &number}
		if err := repo.Create(ctx, first); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		second := &Record{Siding: "S-dup", TowerNumber: 2, WagonNumber: &number}
		err := repo.Create(ctx, second)
		if !errors.Is(err, ErrNumberTaken) {
			t.Errorf("Create() error = %v, want ErrNumberTaken", err)
		}
	})

	t.Run("allows same number on different sidings", func(t *testing.T) {
		number := "WGN-901"
		a := &Record{Siding: "S-a", TowerNumber: 1, WagonNumber: &number}
		b := &Record{Siding: "S-b", TowerNumber: 1, WagonNumber: &number}
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create() on S-a error = %v", err)
		}
		if err := repo.Create(ctx, b); err != nil {
			t.Errorf("Create() on S-b error = %v", err)
		}
	})
}

func TestSQLiteRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("returns ErrWagonNotFound for missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		if !errors.Is(err, ErrWagonNotFound) {
			t.Errorf("GetByID() error = %v, want ErrWagonNotFound", err)
		}
	})
}

func TestSQLiteRepository_ListPending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	// Seed out of tower order to exercise the ORDER BY.
	seedWagon(t, repo, "S1", 5)
	seedWagon(t, repo, "S1", 1)
	done := seedWagon(t, repo, "S1", 3)
	seedWagon(t, repo, "S2", 2)

	numberWagon(t, repo, done.ID, "WGN-050")
	if err := repo.MarkCompleted(ctx, "S1", "WGN-050", time.Now()); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	t.Run("excludes complete wagons and other sidings", func(t *testing.T) {
		pending, err := repo.ListPending(ctx, "S1")
		if err != nil {
			t.Fatalf("ListPending() error = %v", err)
		}
		if len(pending) != 2 {
			t.Fatalf("ListPending() returned %d wagons, want 2", len(pending))
		}
		if pending[0].TowerNumber != 1 || pending[1].TowerNumber != 5 {
			t.Errorf("pending order = [%d, %d], want [1, 5]",
				pending[0].TowerNumber, pending[1].TowerNumber)
		}
	})

	t.Run("returns empty for unknown siding", func(t *testing.T) {
		pending, err := repo.ListPending(ctx, "no-such-siding")
		if err != nil {
			t.Fatalf("ListPending() error = %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("ListPending() returned %d wagons, want 0", len(pending))
		}
	})

	t.Run("ListBySiding includes complete wagons", func(t *testing.T) {
		all, err := repo.ListBySiding(ctx, "S1")
		if err != nil {
			t.Fatalf("ListBySiding() error = %v", err)
		}
		if len(all) != 3 {
			t.Errorf("ListBySiding() returned %d wagons, want 3", len(all))
		}
	})
}

func TestSQLiteRepository_AssignNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("assigns number to unnumbered wagon", func(t *testing.T) {
		rec := seedWagon(t, repo, "S1", 1)

		if err := repo.AssignNumber(ctx, rec.ID, "WGN-001"); err != nil {
			t.Fatalf("AssignNumber() error = %v", err)
		}

		got, err := repo.GetByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !got.Numbered() || *got.WagonNumber != "WGN-001" {
			t.Errorf("WagonNumber = %v, want WGN-001", got.WagonNumber)
		}
	})

	t.Run("returns ErrNumberAssigned for numbered wagon", func(t *testing.T) {
		rec := seedWagon(t, repo, "S1", 2)
		numberWagon(t, repo, rec.ID, "WGN-002")

		err := repo.AssignNumber(ctx, rec.ID, "WGN-003")
		if !errors.Is(err, ErrNumberAssigned) {
			t.Errorf("AssignNumber() error = %v, want ErrNumberAssigned", err)
		}

		got, _ := repo.GetByID(ctx, rec.ID)
		if *got.WagonNumber != "WGN-002" {
			t.Errorf("WagonNumber = %q, want unchanged WGN-002", *got.WagonNumber)
		}
	})

	t.Run("returns ErrNumberTaken for in-use number", func(t *testing.T) {
		taken := seedWagon(t, repo, "S1", 3)
		numberWagon(t, repo, taken.ID, "WGN-004")

		rec := seedWagon(t, repo, "S1", 4)
		err := repo.AssignNumber(ctx, rec.ID, "WGN-004")
		if !errors.Is(err, ErrNumberTaken) {
			t.Errorf("AssignNumber() error = %v, want ErrNumberTaken", err)
		}
	})

	t.Run("returns ErrWagonNotFound for missing wagon", func(t *testing.T) {
		err := repo.AssignNumber(ctx, 9999, "WGN-404")
		if !errors.Is(err, ErrWagonNotFound) {
			t.Errorf("AssignNumber() error = %v, want ErrWagonNotFound", err)
		}
	})
}

func TestSQLiteRepository_IncrementLoaded(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("increments until the cap then refuses", func(t *testing.T) {
		rec := seedWagon(t, repo, "S1", 1)
		numberWagon(t, repo, rec.ID, "WGN-001")

		for want := 1; want <= 3; want++ {
			count, err := repo.IncrementLoaded(ctx, "S1", "WGN-001", 3)
			if err != nil {
				t.Fatalf("IncrementLoaded() #%d error = %v", want, err)
			}
			if count != want {
				t.Errorf("IncrementLoaded() = %d, want %d", count, want)
			}
		}

		_, err := repo.IncrementLoaded(ctx, "S1", "WGN-001", 3)
		if !errors.Is(err, ErrWagonNotPending) {
			t.Errorf("IncrementLoaded() past cap error = %v, want ErrWagonNotPending", err)
		}
	})

	t.Run("refuses complete wagon below cap", func(t *testing.T) {
		rec := seedWagon(t, repo, "S1", 2)
		numberWagon(t, repo, rec.ID, "WGN-002")
		if _, err := repo.IncrementLoaded(ctx, "S1", "WGN-002", 10); err != nil {
			t.Fatalf("IncrementLoaded() error = %v", err)
		}
		if err := repo.MarkCompleted(ctx, "S1", "WGN-002", time.Now()); err != nil {
			t.Fatalf("MarkCompleted() error = %v", err)
		}

		_, err := repo.IncrementLoaded(ctx, "S1", "WGN-002", 10)
		if !errors.Is(err, ErrWagonNotPending) {
			t.Errorf("IncrementLoaded() on complete wagon error = %v, want ErrWagonNotPending", err)
		}
	})

	t.Run("refuses unknown wagon", func(t *testing.T) {
		_, err := repo.IncrementLoaded(ctx, "S1", "WGN-404", 10)
		if !errors.Is(err, ErrWagonNotPending) {
			t.Errorf("IncrementLoaded() error = %v, want ErrWagonNotPending", err)
		}
	})
}

func TestSQLiteRepository_IncrementLoaded_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	const maxBags = 20
	rec := seedWagon(t, repo, "S1", 1)
	numberWagon(t, repo, rec.ID, "WGN-001")

	// Two racing workers hammer the same wagon; the guarded UPDATE must count
	// exactly maxBags successes between them.
	var wg sync.WaitGroup
	successes := make([]int, 2)
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for {
				_, err := repo.IncrementLoaded(ctx, "S1", "WGN-001", maxBags)
				if errors.Is(err, ErrWagonNotPending) {
					return
				}
				if err != nil {
					t.Errorf("IncrementLoaded() error = %v", err)
					return
				}
				successes[w]++
			}
		}(w)
	}
	wg.Wait()

	if total := successes[0] + successes[1]; total != maxBags {
		t.Errorf("total successful increments = %d, want %d", total, maxBags)
	}

	got, err := repo.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LoadedBagCount != maxBags {
		t.Errorf("LoadedBagCount = %d, want %d", got.LoadedBagCount, maxBags)
	}
}

func TestSQLiteRepository_MarkStarted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := seedWagon(t, repo, "S1", 1)
	numberWagon(t, repo, rec.ID, "WGN-001")

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.MarkStarted(ctx, "S1", "WGN-001", first); err != nil {
		t.Fatalf("MarkStarted() error = %v", err)
	}

	t.Run("stamp is written once", func(t *testing.T) {
		later := first.Add(time.Hour)
		if err := repo.MarkStarted(ctx, "S1", "WGN-001", later); err != nil {
			t.Fatalf("second MarkStarted() error = %v", err)
		}

		got, err := repo.GetByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.LoadingStartTime == nil || !got.LoadingStartTime.Equal(first) {
			t.Errorf("LoadingStartTime = %v, want %v", got.LoadingStartTime, first)
		}
	})
}

func TestSQLiteRepository_MarkCompleted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := seedWagon(t, repo, "S1", 1)
	numberWagon(t, repo, rec.ID, "WGN-001")

	first := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if err := repo.MarkCompleted(ctx, "S1", "WGN-001", first); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	t.Run("sets end time and complete flag together", func(t *testing.T) {
		got, err := repo.GetByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !got.LoadingComplete {
			t.Error("LoadingComplete = false, want true")
		}
		if got.LoadingEndTime == nil || !got.LoadingEndTime.Equal(first) {
			t.Errorf("LoadingEndTime = %v, want %v", got.LoadingEndTime, first)
		}
	})

	t.Run("stamp is written once", func(t *testing.T) {
		later := first.Add(time.Hour)
		if err := repo.MarkCompleted(ctx, "S1", "WGN-001", later); err != nil {
			t.Fatalf("second MarkCompleted() error = %v", err)
		}

		got, _ := repo.GetByID(ctx, rec.ID)
		if !got.LoadingEndTime.Equal(first) {
			t.Errorf("LoadingEndTime = %v, want unchanged %v", got.LoadingEndTime, first)
		}
	})
}

func TestSQLiteRepository_PurgeAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	seedWagon(t, repo, "S1", 1)
	seedWagon(t, repo, "S2", 1)

	if err := repo.PurgeAll(ctx); err != nil {
		t.Fatalf("PurgeAll() error = %v", err)
	}

	for _, siding := range []string{"S1", "S2"} {
		records, err := repo.ListBySiding(ctx, siding)
		if err != nil {
			t.Fatalf("ListBySiding(%q) error = %v", siding, err)
		}
		if len(records) != 0 {
			t.Errorf("ListBySiding(%q) returned %d wagons after purge, want 0", siding, len(records))
		}
	}

	t.Run("identity sequence restarts", func(t *testing.T) {
		rec := seedWagon(t, repo, "S1", 1)
		if rec.ID != 1 {
			t.Errorf("first wagon after purge has ID %d, want 1", rec.ID)
		}
	})
}
