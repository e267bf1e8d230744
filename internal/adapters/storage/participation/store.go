package participation

import (
	"context"

	domain "guildleague/internal/domain/participation"
)

// Store persists imported game participation counts.
type Store interface {
	// List returns records ordered by games played descending, then name.
	List(ctx context.Context) ([]domain.GameParticipation, error)
	// ReplaceAll swaps the whole table for records in one transaction.
	ReplaceAll(ctx context.Context, records []domain.GameParticipation) error
}
