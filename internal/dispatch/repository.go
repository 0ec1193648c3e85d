package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for dispatch records.
type Repository interface {
	// Create appends a dispatch record, assigning its ID and departure time
	// when absent.
	Create(ctx context.Context, record *Record) error

	// List returns dispatch records newest first. An empty siding returns
	// all sidings; limit <= 0 means no limit.
	List(ctx context.Context, siding string, limit int) ([]Record, error)

	// PurgeAll removes every dispatch record.
	PurgeAll(ctx context.Context) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed dispatch repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create appends a dispatch record.
func (r *SQLiteRepository) Create(ctx context.Context, record *Record) error {
	if record.Siding == "" {
		return fmt.Errorf("%w: siding is required", ErrInvalidRecord)
	}
	if record.WagonNumber == "" {
		return fmt.Errorf("%w: wagon number is required", ErrInvalidRecord)
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.DispatchedAt.IsZero() {
		record.DispatchedAt = time.Now().UTC().Truncate(time.Second)
	}

	query := `
		INSERT INTO dispatch_records (id, siding, wagon_number, destination, dispatched_at)
		VALUES (?, ?, ?, ?, ?)`

	var destination sql.NullString
	if record.Destination != nil && *record.Destination != "" {
		destination = sql.NullString{String: *record.Destination, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Siding,
		record.WagonNumber,
		destination,
		record.DispatchedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch record: %w", err)
	}
	return nil
}

// List returns dispatch records newest first, optionally filtered by siding.
func (r *SQLiteRepository) List(ctx context.Context, siding string, limit int) ([]Record, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, siding, wagon_number, destination, dispatched_at
		FROM dispatch_records`)

	args := []any{}
	if siding != "" {
		sb.WriteString(" WHERE siding = ?")
		args = append(args, siding)
	}
	sb.WriteString(" ORDER BY dispatched_at DESC, id DESC")
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing dispatch records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec          Record
			destination  sql.NullString
			dispatchedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Siding, &rec.WagonNumber, &destination, &dispatchedAt); err != nil {
			return nil, fmt.Errorf("scanning dispatch record: %w", err)
		}
		if destination.Valid {
			rec.Destination = &destination.String
		}
		rec.DispatchedAt, err = time.Parse(time.RFC3339, dispatchedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing dispatched_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dispatch records: %w", err)
	}
	return records, nil
}

// PurgeAll removes every dispatch record.
func (r *SQLiteRepository) PurgeAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dispatch_records`); err != nil {
		return fmt.Errorf("purging dispatch records: %w", err)
	}
	return nil
}
