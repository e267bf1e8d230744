package message

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/signup"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectMeta = `SELECT message_id, guild_id, channel_id, day, team_mode, slots, created_at FROM message_meta`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the metadata of one message.
// PRE: messageID is non-empty
// POST: Returns the row or sql.ErrNoRows
func (s *SQLiteStore) Get(ctx context.Context, messageID string) (domain.MessageMeta, error) {
	row := s.db.QueryRowContext(ctx, selectMeta+` WHERE message_id = ?`, messageID)
	return scanMeta(row.Scan)
}

// Save inserts or replaces the metadata row.
// PRE: m has been validated
// POST: Row is persisted; created_at is kept from the first save
func (s *SQLiteStore) Save(ctx context.Context, m domain.MessageMeta) error {
	slots, err := json.Marshal(nonNil(m.Slots))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO message_meta (message_id, guild_id, channel_id, day, team_mode, slots, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(message_id) DO UPDATE SET
		   guild_id=excluded.guild_id, channel_id=excluded.channel_id, day=excluded.day,
		   team_mode=excluded.team_mode, slots=excluded.slots`,
		m.MessageID, m.GuildID, m.ChannelID, m.Day, m.TeamMode, string(slots),
		m.CreatedAt.UTC().Format(timeLayout))
	return err
}

// Delete removes the metadata row.
// PRE: messageID is non-empty
// POST: Row is removed if present
func (s *SQLiteStore) Delete(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM message_meta WHERE message_id = ?`, messageID)
	return err
}

// ListByGroup returns every message sharing the guild and day.
// PRE: guildID and day are non-empty
// POST: Ordered by created_at then message_id
func (s *SQLiteStore) ListByGroup(ctx context.Context, guildID, day string) ([]domain.MessageMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		selectMeta+` WHERE guild_id = ? AND day = ? ORDER BY created_at ASC, message_id ASC`, guildID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMetas(rows)
}

// List returns message metadata, newest first.
// POST: Filtered by guild when set, capped by Limit when positive
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.MessageMeta, error) {
	query := selectMeta
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
	return scanMetas(rows)
}

func scanMeta(scan func(dest ...any) error) (domain.MessageMeta, error) {
	var m domain.MessageMeta
	var slots, createdAt string
	if err := scan(&m.MessageID, &m.GuildID, &m.ChannelID, &m.Day, &m.TeamMode, &slots, &createdAt); err != nil {
		return domain.MessageMeta{}, err
	}
	if slots != "" {
		if err := json.Unmarshal([]byte(slots), &m.Slots); err != nil {
			return domain.MessageMeta{}, err
		}
	}
	m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return m, nil
}

func scanMetas(rows *sql.Rows) ([]domain.MessageMeta, error) {
	var out []domain.MessageMeta
	for rows.Next() {
		m, err := scanMeta(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nonNil(slots []string) []string {
	if slots == nil {
		return []string{}
	}
	return slots
}
