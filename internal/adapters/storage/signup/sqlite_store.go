package signup

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/signup"
)

// timeLayout is fixed width so joined_at sorts lexically in join order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectEntry = `SELECT s.message_id, s.user_id, s.slot_time, s.display_name, COALESCE(t.team, ''), s.joined_at
	FROM signup s
	LEFT JOIN team_tag t ON t.message_id = s.message_id AND t.user_id = s.user_id AND t.slot_time = s.slot_time`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a signup store over a database or an open transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Exists reports whether the user holds the slot on the message.
// PRE: key fields are non-empty
// POST: Returns true if a signup row exists
func (s *SQLiteStore) Exists(ctx context.Context, key domain.Key) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signup WHERE message_id = ? AND user_id = ? AND slot_time = ?`,
		key.MessageID, key.UserID, key.SlotTime).Scan(&n)
	return n > 0, err
}

// Insert adds the entry and, for team signups, its tag.
// PRE: entry has been validated
// POST: Returns true when a new row was written; an existing row is left untouched
func (s *SQLiteStore) Insert(ctx context.Context, e domain.Entry) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO signup (message_id, user_id, slot_time, display_name, joined_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(message_id, user_id, slot_time) DO NOTHING`,
		e.MessageID, e.UserID, e.SlotTime, e.DisplayName, e.JoinedAt.UTC().Format(timeLayout))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	if domain.IsTeamMode(e.Team) {
		if err := s.SetTeam(ctx, e.Key(), e.Team); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Delete removes the entry and its team tag.
// POST: Returns true when a signup row was removed
func (s *SQLiteStore) Delete(ctx context.Context, key domain.Key) (bool, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM team_tag WHERE message_id = ? AND user_id = ? AND slot_time = ?`,
		key.MessageID, key.UserID, key.SlotTime); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM signup WHERE message_id = ? AND user_id = ? AND slot_time = ?`,
		key.MessageID, key.UserID, key.SlotTime)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListByMessages returns entries on the given messages.
// POST: Ordered by join time, ties broken by insertion order
func (s *SQLiteStore) ListByMessages(ctx context.Context, messageIDs []string) ([]domain.Entry, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query := selectEntry + ` WHERE s.message_id IN (` + placeholders(len(messageIDs)) + `)
		ORDER BY s.joined_at ASC, s.rowid ASC`
	return s.query(ctx, query, toArgs(messageIDs)...)
}

// FindUserSlot returns the user's entries at slotTime across the given messages.
// PRE: messageIDs is the resolved group
// POST: At most one entry per message
func (s *SQLiteStore) FindUserSlot(ctx context.Context, messageIDs []string, userID, slotTime string) ([]domain.Entry, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	args := append(toArgs(messageIDs), userID, slotTime)
	query := selectEntry + ` WHERE s.message_id IN (` + placeholders(len(messageIDs)) + `)
		AND s.user_id = ? AND s.slot_time = ?
		ORDER BY s.joined_at ASC, s.rowid ASC`
	return s.query(ctx, query, args...)
}

// ListByUser returns every slot the user holds on one message.
func (s *SQLiteStore) ListByUser(ctx context.Context, messageID, userID string) ([]domain.Entry, error) {
	return s.query(ctx, selectEntry+` WHERE s.message_id = ? AND s.user_id = ?
		ORDER BY s.joined_at ASC, s.rowid ASC`, messageID, userID)
}

// SetTeam writes or clears the team tag of an entry.
// PRE: team is A, B or empty
// POST: team_tag holds the team, or no row when team is empty
func (s *SQLiteStore) SetTeam(ctx context.Context, key domain.Key, team string) error {
	if !domain.IsTeamMode(team) {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM team_tag WHERE message_id = ? AND user_id = ? AND slot_time = ?`,
			key.MessageID, key.UserID, key.SlotTime)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_tag (message_id, user_id, slot_time, team) VALUES (?, ?, ?, ?)
		 ON CONFLICT(message_id, user_id, slot_time) DO UPDATE SET team = excluded.team`,
		key.MessageID, key.UserID, key.SlotTime, team)
	return err
}

// DeleteByMessage removes all entries and tags of a message.
// POST: Returns the entries that were removed
func (s *SQLiteStore) DeleteByMessage(ctx context.Context, messageID string) ([]domain.Entry, error) {
	removed, err := s.ListByMessages(ctx, []string{messageID})
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM team_tag WHERE message_id = ?`, messageID); err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM signup WHERE message_id = ?`, messageID); err != nil {
		return nil, err
	}
	return removed, nil
}

// Tally counts signups per (user, guild) joined through message metadata.
// Entries on messages without a recorded guild cannot be attributed and are skipped.
// POST: Ordered by guild then user
func (s *SQLiteStore) Tally(ctx context.Context, guildID string) ([]Tally, error) {
	query := `SELECT s.user_id, m.guild_id, COUNT(*), MAX(s.joined_at)
		FROM signup s
		JOIN message_meta m ON m.message_id = s.message_id
		WHERE m.guild_id != ''`
	var args []any
	if guildID != "" {
		query += ` AND m.guild_id = ?`
		args = append(args, guildID)
	}
	query += ` GROUP BY s.user_id, m.guild_id ORDER BY m.guild_id, s.user_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tally
	for rows.Next() {
		var t Tally
		var lastSeen string
		if err := rows.Scan(&t.UserID, &t.GuildID, &t.Count, &lastSeen); err != nil {
			return nil, err
		}
		t.LastSeen, _ = time.Parse(timeLayout, lastSeen)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var joinedAt string
		if err := rows.Scan(&e.MessageID, &e.UserID, &e.SlotTime, &e.DisplayName, &e.Team, &joinedAt); err != nil {
			return nil, err
		}
		e.JoinedAt, _ = time.Parse(timeLayout, joinedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
