package leagueconfig

import (
	"context"

	domain "guildleague/internal/domain/leagueconfig"
)

// Store persists league schedules keyed by guild and day.
type Store interface {
	// Get returns the config, or sql.ErrNoRows.
	Get(ctx context.Context, guildID, day string) (domain.Config, error)
	Save(ctx context.Context, c domain.Config) error
	// List returns configs for one guild, or every guild when guildID is empty.
	List(ctx context.Context, guildID string) ([]domain.Config, error)
}
