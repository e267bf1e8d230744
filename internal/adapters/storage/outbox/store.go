package outbox

import (
	"context"
	"time"

	domain "guildleague/internal/domain/outbox"
)

// Store defines the interface for render task persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or sql.ErrNoRows
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry to the database.
	// PRE: entity has been validated
	// POST: Entity is persisted (insert or update)
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries the worker may pick up (pending or retrying).
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by created_at
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListRecent returns the newest entries in any state, for the admin view.
	// PRE: limit > 0
	ListRecent(ctx context.Context, limit int) ([]domain.Entry, error)

	// FindOpen returns the open entry for an action and target, or sql.ErrNoRows.
	// Used to coalesce repeated refresh requests for the same message.
	FindOpen(ctx context.Context, actionType, target string) (domain.Entry, error)

	// DeleteDoneBefore prunes finished entries created before cutoff.
	// POST: Returns the number of rows removed
	DeleteDoneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
