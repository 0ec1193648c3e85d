package loading

import (
	"context"
	"testing"

	"github.com/grainline/wagonloader/internal/wagon"
)

func TestAssigner_Assign(t *testing.T) {
	t.Run("numbers pending wagons in tower order", func(t *testing.T) {
		db := setupTestDB(t)
		repo := wagon.NewSQLiteRepository(db)
		ctx := context.Background()

		// Seed out of order; numbering must follow tower positions.
		w5 := seedWagon(t, repo, "S1", 5)
		w1 := seedWagon(t, repo, "S1", 1)
		w3 := seedWagon(t, repo, "S1", 3)

		assigner := NewAssigner(repo, "X")
		assigned, err := assigner.Assign(ctx, "S1")
		if err != nil {
			t.Fatalf("Assign() error = %v", err)
		}
		if assigned != 3 {
			t.Errorf("Assign() = %d, want 3", assigned)
		}

		want := map[int64]string{w1.ID: "X-001", w3.ID: "X-002", w5.ID: "X-003"}
		for id, number := range want {
			got, err := repo.GetByID(ctx, id)
			if err != nil {
				t.Fatalf("GetByID(%d) error = %v", id, err)
			}
			if got.WagonNumber == nil || *got.WagonNumber != number {
				t.Errorf("wagon %d number = %v, want %q", id, got.WagonNumber, number)
			}
		}
	})

	t.Run("idempotent on numbered wagons", func(t *testing.T) {
		db := setupTestDB(t)
		repo := wagon.NewSQLiteRepository(db)
		ctx := context.Background()

		w1 := seedWagon(t, repo, "S1", 1)
		seedWagon(t, repo, "S1", 2)

		assigner := NewAssigner(repo, "WGN")
		if _, err := assigner.Assign(ctx, "S1"); err != nil {
			t.Fatalf("first Assign() error = %v", err)
		}

		assigned, err := assigner.Assign(ctx, "S1")
		if err != nil {
			t.Fatalf("second Assign() error = %v", err)
		}
		if assigned != 0 {
			t.Errorf("second Assign() = %d, want 0", assigned)
		}

		got, _ := repo.GetByID(ctx, w1.ID)
		if *got.WagonNumber != "WGN-001" {
			t.Errorf("wagon number = %q, want unchanged WGN-001", *got.WagonNumber)
		}
	})

	t.Run("skips numbers claimed by a prior partial run", func(t *testing.T) {
		db := setupTestDB(t)
		repo := wagon.NewSQLiteRepository(db)
		ctx := context.Background()

		claimed := seedWagon(t, repo, "S1", 1)
		if err := repo.AssignNumber(ctx, claimed.ID, "WGN-001"); err != nil {
			t.Fatalf("AssignNumber() error = %v", err)
		}
		fresh := seedWagon(t, repo, "S1", 2)

		assigner := NewAssigner(repo, "WGN")
		assigned, err := assigner.Assign(ctx, "S1")
		if err != nil {
			t.Fatalf("Assign() error = %v", err)
		}
		if assigned != 1 {
			t.Errorf("Assign() = %d, want 1", assigned)
		}

		got, _ := repo.GetByID(ctx, fresh.ID)
		if got.WagonNumber == nil || *got.WagonNumber != "WGN-002" {
			t.Errorf("fresh wagon number = %v, want WGN-002", got.WagonNumber)
		}
	})

	t.Run("scoped to one siding", func(t *testing.T) {
		db := setupTestDB(t)
		repo := wagon.NewSQLiteRepository(db)
		ctx := context.Background()

		seedWagon(t, repo, "S1", 1)
		other := seedWagon(t, repo, "S2", 1)

		assigner := NewAssigner(repo, "WGN")
		if _, err := assigner.Assign(ctx, "S1"); err != nil {
			t.Fatalf("Assign() error = %v", err)
		}

		got, _ := repo.GetByID(ctx, other.ID)
		if got.WagonNumber != nil {
			t.Errorf("S2 wagon was numbered %q by an S1 run", *got.WagonNumber)
		}
	})

	t.Run("empty prefix falls back to default", func(t *testing.T) {
		db := setupTestDB(t)
		repo := wagon.NewSQLiteRepository(db)
		ctx := context.Background()

		rec := seedWagon(t, repo, "S1", 1)

		assigner := NewAssigner(repo, "")
		if _, err := assigner.Assign(ctx, "S1"); err != nil {
			t.Fatalf("Assign() error = %v", err)
		}

		got, _ := repo.GetByID(ctx, rec.ID)
		if got.WagonNumber == nil || *got.WagonNumber != "WGN-001" {
			t.Errorf("wagon number = %v, want WGN-001", got.WagonNumber)
		}
	})
}
