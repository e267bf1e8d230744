package audit

import (
	"context"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/audit"
)

const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, at, category, action, actor_id, actor_name, target, detail, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.UTC().Format(dateLayout), string(e.Category), string(e.Action),
		e.ActorID, e.ActorName, e.Target, e.Detail, e.IPAddress)
	return err
}

// List returns events matching filter, newest first.
// POST: At most limit events
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	query := `SELECT id, at, category, action, actor_id, actor_name, target, detail, ip_address FROM audit_event WHERE 1=1`
	var args []any
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	if filter.ActorID != "" {
		query += ` AND actor_id = ?`
		args = append(args, filter.ActorID)
	}
	if filter.Target != "" {
		query += ` AND target = ?`
		args = append(args, filter.Target)
	}
	query += ` ORDER BY at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Category, &e.Action, &e.ActorID, &e.ActorName, &e.Target, &e.Detail, &e.IPAddress); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(dateLayout, at)
		events = append(events, e)
	}
	return events, rows.Err()
}
