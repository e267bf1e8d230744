package leagueconfig

import (
	"context"
	"encoding/json"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/leagueconfig"
)

// SQLiteStore implements Store using SQLite. Ranges are stored as a JSON array.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the config for a guild and day.
// PRE: guildID and day are non-empty
// POST: Returns the config or sql.ErrNoRows
func (s *SQLiteStore) Get(ctx context.Context, guildID, day string) (domain.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT guild_id, day, ranges FROM league_config WHERE guild_id = ? AND day = ?`, guildID, day)
	return scanConfig(row.Scan)
}

// Save inserts or replaces the config for its guild and day.
// PRE: c has been validated
func (s *SQLiteStore) Save(ctx context.Context, c domain.Config) error {
	ranges, err := json.Marshal(c.Ranges)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO league_config (guild_id, day, ranges) VALUES (?, ?, ?)
		 ON CONFLICT(guild_id, day) DO UPDATE SET ranges = excluded.ranges`,
		c.GuildID, c.Day, string(ranges))
	return err
}

// List returns configs ordered by guild then day.
func (s *SQLiteStore) List(ctx context.Context, guildID string) ([]domain.Config, error) {
	query := `SELECT guild_id, day, ranges FROM league_config`
	var args []any
	if guildID != "" {
		query += ` WHERE guild_id = ?`
		args = append(args, guildID)
	}
	query += ` ORDER BY guild_id, day`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Config
	for rows.Next() {
		c, err := scanConfig(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanConfig(scan func(dest ...any) error) (domain.Config, error) {
	var c domain.Config
	var ranges string
	if err := scan(&c.GuildID, &c.Day, &ranges); err != nil {
		return domain.Config{}, err
	}
	if err := json.Unmarshal([]byte(ranges), &c.Ranges); err != nil {
		return domain.Config{}, err
	}
	return c, nil
}
