package outbox

import (
	"context"
	"database/sql"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/outbox"
)

const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectEntry = `SELECT id, action_type, target, payload, status, attempts, max_attempts,
	last_attempted_at, created_at, error_message FROM outbox`

// SQLiteStore implements the outbox Store interface using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
// PRE: id is non-empty
// POST: Returns the entry or sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id).Scan)
}

// Save persists an outbox entry to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	lastAttemptedAt := ""
	if !e.LastAttemptedAt.IsZero() {
		lastAttemptedAt = e.LastAttemptedAt.UTC().Format(dateLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (id, action_type, target, payload, status, attempts, max_attempts, last_attempted_at, created_at, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   action_type=excluded.action_type, target=excluded.target, payload=excluded.payload,
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, error_message=excluded.error_message`,
		e.ID, e.ActionType, e.Target, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		lastAttemptedAt, e.CreatedAt.UTC().Format(dateLayout), e.ErrorMessage)
	return err
}

// ListPending returns entries that need to be processed (pending or retrying).
// PRE: limit > 0
// POST: Returns up to limit entries ordered by created_at
func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE status IN (?, ?) AND attempts < max_attempts ORDER BY created_at ASC LIMIT ?`,
		domain.StatusPending, domain.StatusRetrying, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRecent returns the newest entries in any state.
// PRE: limit > 0
// POST: Ordered by created_at descending
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindOpen returns the oldest open entry for the action and target.
// POST: Returns the entry or sql.ErrNoRows
func (s *SQLiteStore) FindOpen(ctx context.Context, actionType, target string) (domain.Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx,
		selectEntry+` WHERE action_type = ? AND target = ? AND status IN (?, ?) AND attempts < max_attempts
		 ORDER BY created_at ASC LIMIT 1`,
		actionType, target, domain.StatusPending, domain.StatusRetrying).Scan)
}

// DeleteDoneBefore prunes finished entries created before cutoff.
// POST: Failed entries are kept for the admin to inspect
func (s *SQLiteStore) DeleteDoneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE status IN (?, ?) AND created_at < ?`,
		domain.StatusDone, domain.StatusAbandoned, cutoff.UTC().Format(dateLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanEntry scans a single row into an Entry.
func scanEntry(scan func(dest ...any) error) (domain.Entry, error) {
	var e domain.Entry
	var createdAt, lastAttemptedAt string
	err := scan(&e.ID, &e.ActionType, &e.Target, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &createdAt, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	e.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	if lastAttemptedAt != "" {
		e.LastAttemptedAt, _ = time.Parse(dateLayout, lastAttemptedAt)
	}
	return e, nil
}

// scanEntries scans multiple rows into a slice of Entries.
func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
