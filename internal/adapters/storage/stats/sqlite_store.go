package stats

import (
	"context"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/stats"
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

// Increment bumps the user's counter in the guild.
// PRE: guildID and userID are non-empty
// POST: count is at least 1 and last_seen = seen
func (s *SQLiteStore) Increment(ctx context.Context, guildID, userID string, seen time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participation_stat (user_id, guild_id, count, last_seen) VALUES (?, ?, 1, ?)
		 ON CONFLICT(user_id, guild_id) DO UPDATE SET count = count + 1, last_seen = excluded.last_seen`,
		userID, guildID, formatTime(seen))
	return err
}

// Decrement lowers the user's counter in the guild.
// POST: count is floored at zero; a missing row stays missing
func (s *SQLiteStore) Decrement(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE participation_stat SET count = MAX(count - 1, 0) WHERE user_id = ? AND guild_id = ?`,
		userID, guildID)
	return err
}

// Get returns one counter row.
// POST: Returns the row or sql.ErrNoRows
func (s *SQLiteStore) Get(ctx context.Context, guildID, userID string) (domain.ParticipationStat, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, guild_id, count, last_seen, custom_name
		 FROM participation_stat WHERE user_id = ? AND guild_id = ?`, userID, guildID)
	return scanStat(row.Scan)
}

// Save overwrites a counter row, including its custom name.
// PRE: s has been validated
func (s *SQLiteStore) Save(ctx context.Context, st domain.ParticipationStat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participation_stat (user_id, guild_id, count, last_seen, custom_name) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, guild_id) DO UPDATE SET
		   count=excluded.count, last_seen=excluded.last_seen, custom_name=excluded.custom_name`,
		st.UserID, st.GuildID, st.Count, formatTime(st.LastSeen), st.CustomName)
	return err
}

// List returns counters ordered by count descending, then user id.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.ParticipationStat, error) {
	query := `SELECT user_id, guild_id, count, last_seen, custom_name FROM participation_stat`
	var args []any
	if filter.GuildID != "" {
		query += ` WHERE guild_id = ?`
		args = append(args, filter.GuildID)
	}
	query += ` ORDER BY count DESC, user_id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ParticipationStat
	for rows.Next() {
		st, err := scanStat(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DeleteAll removes counters for one guild, or all of them.
// POST: Returns the number of rows removed
func (s *SQLiteStore) DeleteAll(ctx context.Context, guildID string) (int64, error) {
	query := `DELETE FROM participation_stat`
	var args []any
	if guildID != "" {
		query += ` WHERE guild_id = ?`
		args = append(args, guildID)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetCustomName stores the display name on an existing counter row.
// POST: A user without a counter row still has none
func (s *SQLiteStore) SetCustomName(ctx context.Context, guildID, userID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE participation_stat SET custom_name = ? WHERE user_id = ? AND guild_id = ?`,
		name, userID, guildID)
	return err
}

// ListOverrides returns display-name overrides for a guild, or all guilds.
func (s *SQLiteStore) ListOverrides(ctx context.Context, guildID string) ([]domain.NameOverride, error) {
	query := `SELECT user_id, guild_id, display_name FROM name_override`
	var args []any
	if guildID != "" {
		query += ` WHERE guild_id = ?`
		args = append(args, guildID)
	}
	query += ` ORDER BY guild_id, user_id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NameOverride
	for rows.Next() {
		var o domain.NameOverride
		if err := rows.Scan(&o.UserID, &o.GuildID, &o.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveOverride inserts or replaces a display-name override.
// PRE: o.DisplayName is normalized and non-empty
func (s *SQLiteStore) SaveOverride(ctx context.Context, o domain.NameOverride) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO name_override (user_id, guild_id, display_name) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, guild_id) DO UPDATE SET display_name = excluded.display_name`,
		o.UserID, o.GuildID, o.DisplayName)
	return err
}

// DeleteOverride removes a display-name override.
func (s *SQLiteStore) DeleteOverride(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM name_override WHERE user_id = ? AND guild_id = ?`, userID, guildID)
	return err
}

func scanStat(scan func(dest ...any) error) (domain.ParticipationStat, error) {
	var st domain.ParticipationStat
	var lastSeen string
	if err := scan(&st.UserID, &st.GuildID, &st.Count, &lastSeen, &st.CustomName); err != nil {
		return domain.ParticipationStat{}, err
	}
	if lastSeen != "" {
		st.LastSeen, _ = time.Parse(timeLayout, lastSeen)
	}
	return st, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
