package wagon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// recordColumns is the column list shared by every SELECT in this file.
const recordColumns = `id, siding, tower_number, wagon_number, loaded_bag_count,
	loading_complete, loading_start_time, loading_end_time, created_at, updated_at`

// Repository defines the interface for wagon persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a wagon by its internal identity.
	// Returns ErrWagonNotFound if the wagon does not exist.
	GetByID(ctx context.Context, id int64) (*Record, error)

	// ListBySiding retrieves all wagons on a siding regardless of status,
	// ordered by tower number. Used by dashboard reads.
	ListBySiding(ctx context.Context, siding string) ([]Record, error)

	// ListPending retrieves wagons on a siding with loading outstanding,
	// ordered by tower number ascending.
	ListPending(ctx context.Context, siding string) ([]Record, error)

	// Create inserts a new wagon record. This is the ingestion path: records
	// start with a zero bag count, no display number, and loading incomplete.
	Create(ctx context.Context, record *Record) error

	// AssignNumber sets the display number on a wagon that has none.
	// Returns ErrNumberAssigned if the wagon is already numbered and
	// ErrNumberTaken if the number is in use on the same siding.
	AssignNumber(ctx context.Context, id int64, number string) error

	// IncrementLoaded performs the atomic conditional increment: add one bag
	// to the wagon identified by siding and display number, guarded by the
	// wagon still being incomplete and below maxBags. Returns the new count,
	// or ErrWagonNotPending if the guard matched no row.
	IncrementLoaded(ctx context.Context, siding, wagonNumber string, maxBags int) (int, error)

	// MarkStarted stamps the loading start time. The stamp is written at most
	// once; subsequent calls are no-ops.
	MarkStarted(ctx context.Context, siding, wagonNumber string, startedAt time.Time) error

	// MarkCompleted stamps the loading end time and sets the complete flag.
	// The stamp is written at most once; subsequent calls are no-ops.
	MarkCompleted(ctx context.Context, siding, wagonNumber string, endedAt time.Time) error

	// PurgeAll deletes every wagon record and restarts the identity sequence.
	// Only the whole-system reset calls this.
	PurgeAll(ctx context.Context) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a wagon by its internal identity.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM wagon_records WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWagonNotFound
		}
		return nil, fmt.Errorf("querying wagon by id: %w", err)
	}
	return record, nil
}

// ListBySiding retrieves all wagons on a siding, ordered by tower number.
func (r *SQLiteRepository) ListBySiding(ctx context.Context, siding string) ([]Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM wagon_records
		WHERE siding = ?
		ORDER BY tower_number`

	return r.queryRecords(ctx, query, siding)
}

// ListPending retrieves incomplete wagons on a siding, ordered by tower number.
func (r *SQLiteRepository) ListPending(ctx context.Context, siding string) ([]Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM wagon_records
		WHERE siding = ? AND loading_complete = 0
		ORDER BY tower_number`

	return r.queryRecords(ctx, query, siding)
}

// Create inserts a new wagon record.
func (r *SQLiteRepository) Create(ctx context.Context, record *Record) error {
	if record.Siding == "" {
		return fmt.Errorf("%w: siding is required", ErrInvalidRecord)
	}
	if record.TowerNumber < 0 {
		return fmt.Errorf("%w: tower number must not be negative", ErrInvalidRecord)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	query := `
		INSERT INTO wagon_records (
			siding, tower_number, wagon_number, loaded_bag_count,
			loading_complete, loading_start_time, loading_end_time,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		record.Siding,
		record.TowerNumber,
		nullableString(record.WagonNumber),
		record.LoadedBagCount,
		boolToInt(record.LoadingComplete),
		nullableTime(record.LoadingStartTime),
		nullableTime(record.LoadingEndTime),
		record.CreatedAt.Format(time.RFC3339),
		record.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrNumberTaken
		}
		return fmt.Errorf("inserting wagon: %w", err)
	}

	record.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted wagon id: %w", err)
	}

	return nil
}

// AssignNumber sets the display number on an unnumbered wagon.
// The IS NULL guard makes assignment a one-time transition even under
// concurrent assigner runs.
func (r *SQLiteRepository) AssignNumber(ctx context.Context, id int64, number string) error {
	query := `
		UPDATE wagon_records
		SET wagon_number = ?, updated_at = ?
		WHERE id = ? AND wagon_number IS NULL`

	now := time.Now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx, query, number, now.Format(time.RFC3339), id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrNumberTaken
		}
		return fmt.Errorf("assigning wagon number: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish missing wagon from already-numbered wagon.
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if existing.Numbered() {
			return ErrNumberAssigned
		}
		return ErrWagonNotFound
	}

	return nil
}

// IncrementLoaded performs the atomic conditional increment.
//
// The guard and the increment are a single UPDATE so concurrent drivers can
// never double-count or push a wagon past maxBags: at most one of two racing
// updates matches the loaded_bag_count < maxBags predicate for the final bag.
func (r *SQLiteRepository) IncrementLoaded(ctx context.Context, siding, wagonNumber string, maxBags int) (int, error) {
	query := `
		UPDATE wagon_records
		SET loaded_bag_count = loaded_bag_count + 1,
		    updated_at = ?
		WHERE siding = ?
		  AND wagon_number = ?
		  AND loading_complete = 0
		  AND loaded_bag_count < ?
		RETURNING loaded_bag_count`

	now := time.Now().UTC().Truncate(time.Second)
	var count int
	err := r.db.QueryRowContext(ctx, query,
		now.Format(time.RFC3339), siding, wagonNumber, maxBags,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrWagonNotPending
		}
		return 0, fmt.Errorf("incrementing loaded count: %w", err)
	}

	return count, nil
}

// MarkStarted stamps the loading start time, at most once.
func (r *SQLiteRepository) MarkStarted(ctx context.Context, siding, wagonNumber string, startedAt time.Time) error {
	query := `
		UPDATE wagon_records
		SET loading_start_time = ?, updated_at = ?
		WHERE siding = ? AND wagon_number = ? AND loading_start_time IS NULL`

	stamp := startedAt.UTC().Truncate(time.Second).Format(time.RFC3339)
	now := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	if _, err := r.db.ExecContext(ctx, query, stamp, now, siding, wagonNumber); err != nil {
		return fmt.Errorf("stamping loading start: %w", err)
	}
	return nil
}

// MarkCompleted stamps the loading end time and sets the complete flag, at most once.
func (r *SQLiteRepository) MarkCompleted(ctx context.Context, siding, wagonNumber string, endedAt time.Time) error {
	query := `
		UPDATE wagon_records
		SET loading_end_time = ?, loading_complete = 1, updated_at = ?
		WHERE siding = ? AND wagon_number = ? AND loading_end_time IS NULL`

	stamp := endedAt.UTC().Truncate(time.Second).Format(time.RFC3339)
	now := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	if _, err := r.db.ExecContext(ctx, query, stamp, now, siding, wagonNumber); err != nil {
		return fmt.Errorf("stamping loading end: %w", err)
	}
	return nil
}

// PurgeAll deletes every wagon record and restarts the identity sequence.
func (r *SQLiteRepository) PurgeAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM wagon_records"); err != nil {
		return fmt.Errorf("purging wagon records: %w", err)
	}
	// Restart AUTOINCREMENT so a fresh epoch numbers from 1 again.
	// sqlite_sequence only exists after the first AUTOINCREMENT insert.
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM sqlite_sequence WHERE name = 'wagon_records'",
	); err != nil && !strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("resetting wagon identity sequence: %w", err)
	}
	return nil
}

// queryRecords executes a query and returns a slice of wagon records.
func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying wagons: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wagon: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wagons: %w", err)
	}

	return records, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a row or rows result into a Record.
func scanRecord(scanner rowScanner) (*Record, error) {
	var rec Record
	var wagonNumber sql.NullString
	var startTime, endTime sql.NullString
	var complete int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&rec.ID,
		&rec.Siding,
		&rec.TowerNumber,
		&wagonNumber,
		&rec.LoadedBagCount,
		&complete,
		&startTime,
		&endTime,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.LoadingComplete = complete != 0

	if wagonNumber.Valid {
		rec.WagonNumber = &wagonNumber.String
	}

	if startTime.Valid {
		t, err := time.Parse(time.RFC3339, startTime.String)
		if err == nil {
			rec.LoadingStartTime = &t
		}
	}
	if endTime.Valid {
		t, err := time.Parse(time.RFC3339, endTime.String)
		if err == nil {
			rec.LoadingEndTime = &t
		}
	}

	var parseErr error
	rec.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	rec.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &rec, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Truncate(time.Second).Format(time.RFC3339), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
