package nodewar

import (
	"context"

	domain "guildleague/internal/domain/nodewar"
)

// Store persists capacity-bounded rosters and their entries.
type Store interface {
	// GetMessage returns the roster message, or sql.ErrNoRows.
	GetMessage(ctx context.Context, messageID string) (domain.Message, error)
	SaveMessage(ctx context.Context, m domain.Message) error
	// DeleteMessage removes the message; entries go with it.
	DeleteMessage(ctx context.Context, messageID string) error
	ListMessages(ctx context.Context, filter ListFilter) ([]domain.Message, error)

	// ListEntries returns the roster ordered by position.
	ListEntries(ctx context.Context, messageID string) ([]domain.Entry, error)
	// InsertEntry adds the entry unless the user is already on the roster.
	InsertEntry(ctx context.Context, e domain.Entry) (bool, error)
	DeleteEntry(ctx context.Context, messageID, userID string) (bool, error)
	UpdateStatus(ctx context.Context, messageID, userID, status string) error
}

// ListFilter carries filtering parameters for ListMessages.
type ListFilter struct {
	GuildID string
	Limit   int
}
