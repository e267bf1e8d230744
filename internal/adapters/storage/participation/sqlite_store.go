package participation

import (
	"context"
	"fmt"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/participation"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// List returns every record.
// POST: Ordered by games played descending, then character name
func (s *SQLiteStore) List(ctx context.Context) ([]domain.GameParticipation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT character_name, games_played, last_updated FROM game_participation
		 ORDER BY games_played DESC, character_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GameParticipation
	for rows.Next() {
		var g domain.GameParticipation
		var updated string
		if err := rows.Scan(&g.CharacterName, &g.GamesPlayed, &updated); err != nil {
			return nil, err
		}
		g.LastUpdated, _ = time.Parse(timeLayout, updated)
		out = append(out, g)
	}
	return out, rows.Err()
}

// ReplaceAll deletes every record and inserts records, atomically.
// PRE: records have unique character names
// POST: Table holds exactly records, or is unchanged on error
func (s *SQLiteStore) ReplaceAll(ctx context.Context, records []domain.GameParticipation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_participation`); err != nil {
		return fmt.Errorf("clear game participation: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO game_participation (character_name, games_played, last_updated) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.CharacterName, r.GamesPlayed, r.LastUpdated.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("insert %q: %w", r.CharacterName, err)
		}
	}
	return tx.Commit()
}
