package audit

import (
	"context"

	domain "guildleague/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event has been validated
	Save(ctx context.Context, event domain.Event) error

	// List returns events, newest first.
	// PRE: limit > 0
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Category domain.Category
	ActorID  string
	Target   string
}

var _ Store = (*SQLiteStore)(nil)
