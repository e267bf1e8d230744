package nodewar

import (
	"context"
	"database/sql"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/nodewar"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetMessage retrieves a roster message.
// PRE: messageID is non-empty
// POST: Returns the message or sql.ErrNoRows
func (s *SQLiteStore) GetMessage(ctx context.Context, messageID string) (domain.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT message_id, guild_id, channel_id, day, max_cap, created_at
		 FROM nodewar_message WHERE message_id = ?`, messageID)
	return scanMessage(row.Scan)
}

// SaveMessage inserts or updates a roster message.
// PRE: m has been validated
// POST: Message is persisted; created_at is kept from the first save
func (s *SQLiteStore) SaveMessage(ctx context.Context, m domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nodewar_message (message_id, guild_id, channel_id, day, max_cap, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(message_id) DO UPDATE SET
		   guild_id=excluded.guild_id, channel_id=excluded.channel_id,
		   day=excluded.day, max_cap=excluded.max_cap`,
		m.MessageID, m.GuildID, m.ChannelID, m.Day, m.MaxCap, m.CreatedAt.UTC().Format(timeLayout))
	return err
}

// DeleteMessage removes the roster message and, by cascade, its entries.
// POST: No message or entry rows remain for messageID
func (s *SQLiteStore) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM nodewar_message WHERE message_id = ?`, messageID)
	return err
}

// ListMessages returns roster messages, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, filter ListFilter) ([]domain.Message, error) {
	query := `SELECT message_id, guild_id, channel_id, day, max_cap, created_at FROM nodewar_message`
	var args []any
	if filter.GuildID != "" {
		query += ` WHERE guild_id = ?`
		args = append(args, filter.GuildID)
	}
	query += ` ORDER BY created_at DESC, message_id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListEntries returns the roster of a message.
// POST: Ordered by ascending position
func (s *SQLiteStore) ListEntries(ctx context.Context, messageID string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, user_id, display_name, position, status, signed_at
		 FROM nodewar_signup WHERE message_id = ? ORDER BY position ASC`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// InsertEntry adds a roster entry, ignoring a user already present.
// PRE: e has been validated and its message exists
// POST: Returns true when a new row was written
func (s *SQLiteStore) InsertEntry(ctx context.Context, e domain.Entry) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO nodewar_signup (message_id, user_id, display_name, position, status, signed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(message_id, user_id) DO NOTHING`,
		e.MessageID, e.UserID, e.DisplayName, e.Position, e.Status, e.SignedAt.UTC().Format(timeLayout))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteEntry removes a user from the roster.
// POST: Returns true when a row was removed
func (s *SQLiteStore) DeleteEntry(ctx context.Context, messageID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM nodewar_signup WHERE message_id = ? AND user_id = ?`, messageID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateStatus flips an entry between signed and waitlist.
// PRE: status is signed or waitlist
func (s *SQLiteStore) UpdateStatus(ctx context.Context, messageID, userID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE nodewar_signup SET status = ? WHERE message_id = ? AND user_id = ?`,
		status, messageID, userID)
	return err
}

func scanMessage(scan func(dest ...any) error) (domain.Message, error) {
	var m domain.Message
	var createdAt string
	if err := scan(&m.MessageID, &m.GuildID, &m.ChannelID, &m.Day, &m.MaxCap, &createdAt); err != nil {
		return domain.Message{}, err
	}
	m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return m, nil
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var signedAt string
		if err := rows.Scan(&e.MessageID, &e.UserID, &e.DisplayName, &e.Position, &e.Status, &signedAt); err != nil {
			return nil, err
		}
		e.SignedAt, _ = time.Parse(timeLayout, signedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
