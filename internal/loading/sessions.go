package loading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a loading session.
type SessionStatus string

// Session statuses.
const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session is the durable record of one launched loading run.
type Session struct {
	ID           string        `json:"id"`
	Siding       string        `json:"siding"`
	MaxBags      int           `json:"max_bags"`
	Status       SessionStatus `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	WagonsLoaded int           `json:"wagons_loaded"`
	Error        *string       `json:"error,omitempty"`
}

// SessionRepository defines persistence for loading sessions.
type SessionRepository interface {
	// Create records a new running session.
	Create(ctx context.Context, session *Session) error

	// MarkCompleted transitions a session to completed with its wagon count.
	MarkCompleted(ctx context.Context, id string, wagonsLoaded int) error

	// MarkFailed transitions a session to failed with an error message.
	MarkFailed(ctx context.Context, id string, message string) error

	// List returns sessions newest first. An empty siding returns all
	// sidings; limit <= 0 means no limit.
	List(ctx context.Context, siding string, limit int) ([]Session, error)

	// PurgeAll removes every session record.
	PurgeAll(ctx context.Context) error
}

// SQLiteSessionRepository implements SessionRepository backed by SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSQLiteSessionRepository creates a session repository using the given
// database handle.
func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Create records a new running session.
func (r *SQLiteSessionRepository) Create(ctx context.Context, session *Session) error {
	if session.ID == "" {
		return fmt.Errorf("creating session: id is required")
	}
	if session.Status == "" {
		session.Status = SessionRunning
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC().Truncate(time.Second)
	}

	query := `
		INSERT INTO loading_sessions (id, siding, max_bags, status, started_at, wagons_loaded)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Siding,
		session.MaxBags,
		string(session.Status),
		session.StartedAt.Format(time.RFC3339),
		session.WagonsLoaded,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// MarkCompleted transitions a session to completed with its wagon count.
func (r *SQLiteSessionRepository) MarkCompleted(ctx context.Context, id string, wagonsLoaded int) error {
	query := `
		UPDATE loading_sessions
		SET status = ?, completed_at = ?, wagons_loaded = ?
		WHERE id = ?`

	now := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query, string(SessionCompleted), now, wagonsLoaded, id)
	if err != nil {
		return fmt.Errorf("completing session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("completing session: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// MarkFailed transitions a session to failed with an error message.
func (r *SQLiteSessionRepository) MarkFailed(ctx context.Context, id string, message string) error {
	query := `
		UPDATE loading_sessions
		SET status = ?, completed_at = ?, error = ?
		WHERE id = ?`

	now := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query, string(SessionFailed), now, message, id)
	if err != nil {
		return fmt.Errorf("failing session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failing session: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// List returns sessions newest first, optionally filtered by siding.
func (r *SQLiteSessionRepository) List(ctx context.Context, siding string, limit int) ([]Session, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, siding, max_bags, status, started_at, completed_at, wagons_loaded, error
		FROM loading_sessions`)

	args := []any{}
	if siding != "" {
		sb.WriteString(" WHERE siding = ?")
		args = append(args, siding)
	}
	sb.WriteString(" ORDER BY started_at DESC, id DESC")
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// PurgeAll removes every session record.
func (r *SQLiteSessionRepository) PurgeAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM loading_sessions`); err != nil {
		return fmt.Errorf("purging sessions: %w", err)
	}
	return nil
}

func scanSession(row interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		session     Session
		status      string
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
	)

	err := row.Scan(
		&session.ID,
		&session.Siding,
		&session.MaxBags,
		&status,
		&startedAt,
		&completedAt,
		&session.WagonsLoaded,
		&errMsg,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	session.Status = SessionStatus(status)

	started, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	session.StartedAt = started

	if completedAt.Valid {
		completed, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		session.CompletedAt = &completed
	}
	if errMsg.Valid {
		session.Error = &errMsg.String
	}

	return &session, nil
}
