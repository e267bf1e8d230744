package stats

import (
	"context"
	"time"

	domain "guildleague/internal/domain/stats"
)

// Store persists participation counters and display-name overrides.
type Store interface {
	// Increment bumps the counter, creating it at 1.
	Increment(ctx context.Context, guildID, userID string, seen time.Time) error
	// Decrement lowers the counter, never below zero.
	Decrement(ctx context.Context, guildID, userID string) error
	// Get returns one counter, or sql.ErrNoRows.
	Get(ctx context.Context, guildID, userID string) (domain.ParticipationStat, error)
	// Save overwrites a counter row.
	Save(ctx context.Context, s domain.ParticipationStat) error
	List(ctx context.Context, filter ListFilter) ([]domain.ParticipationStat, error)
	// DeleteAll removes counters of one guild, or every guild when guildID is empty.
	DeleteAll(ctx context.Context, guildID string) (int64, error)
	// SetCustomName mirrors a display name onto the counter row, if there is one.
	SetCustomName(ctx context.Context, guildID, userID, name string) error

	ListOverrides(ctx context.Context, guildID string) ([]domain.NameOverride, error)
	SaveOverride(ctx context.Context, o domain.NameOverride) error
	DeleteOverride(ctx context.Context, guildID, userID string) error
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	GuildID string
	Limit   int
}
