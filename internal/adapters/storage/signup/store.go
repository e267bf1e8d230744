package signup

import (
	"context"
	"time"

	domain "guildleague/internal/domain/signup"
)

// Store persists slot signups and their team tags.
// Every method accepts the tag as part of the entry so callers never touch team_tag directly.
type Store interface {
	// Exists reports whether the user holds the slot on the message.
	Exists(ctx context.Context, key domain.Key) (bool, error)

	// Insert adds the entry and its team tag, ignoring a duplicate key.
	// PRE: entry has been validated
	// POST: Returns true when a new row was written
	Insert(ctx context.Context, e domain.Entry) (bool, error)

	// Delete removes the entry and its team tag.
	// POST: Returns true when a row was removed
	Delete(ctx context.Context, key domain.Key) (bool, error)

	// ListByMessages returns entries on the given messages in join order.
	ListByMessages(ctx context.Context, messageIDs []string) ([]domain.Entry, error)

	// FindUserSlot returns the user's entries at slotTime across the given messages.
	FindUserSlot(ctx context.Context, messageIDs []string, userID, slotTime string) ([]domain.Entry, error)

	// ListByUser returns every slot the user holds on one message.
	ListByUser(ctx context.Context, messageID, userID string) ([]domain.Entry, error)

	// SetTeam writes the team tag for an existing entry; TeamNone clears it.
	// PRE: team is A, B or empty
	SetTeam(ctx context.Context, key domain.Key, team string) error

	// DeleteByMessage removes all entries and tags of a message.
	// POST: Returns the removed entries so callers can adjust counters
	DeleteByMessage(ctx context.Context, messageID string) ([]domain.Entry, error)

	// Tally counts signups per (user, guild) for messages with a known guild.
	// An empty guildID tallies every guild.
	Tally(ctx context.Context, guildID string) ([]Tally, error)
}

// Tally is the signup count recomputed from entries for one user in one guild.
type Tally struct {
	UserID   string
	GuildID  string
	Count    int
	LastSeen time.Time
}
