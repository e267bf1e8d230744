package message

import (
	"context"

	domain "guildleague/internal/domain/signup"
)

// Store persists signup message metadata.
type Store interface {
	// Get returns the metadata row, or sql.ErrNoRows.
	Get(ctx context.Context, messageID string) (domain.MessageMeta, error)
	Save(ctx context.Context, m domain.MessageMeta) error
	Delete(ctx context.Context, messageID string) error
	// ListByGroup returns every message sharing the guild and day, oldest first.
	ListByGroup(ctx context.Context, guildID, day string) ([]domain.MessageMeta, error)
	List(ctx context.Context, filter ListFilter) ([]domain.MessageMeta, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	GuildID string
	Limit   int
}
