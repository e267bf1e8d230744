package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"guildleague/internal/adapters/storage/roster"
)

// ErrNotFound is returned when a referenced message, signup or config does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// notFound converts a missing row into ErrNotFound, leaving other errors wrapped.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}

// RosterRunner runs a roster mutation in one transaction.
type RosterRunner interface {
	Do(ctx context.Context, fn func(roster.Tx) error) error
}

// statGuild picks the guild a participation counter belongs to.
// The interaction's guild wins; otherwise the message's recorded guild is used.
func statGuild(ctx context.Context, tx roster.Tx, interactionGuild, messageID string) (string, error) {
	if g := strings.TrimSpace(interactionGuild); g != "" {
		return g, nil
	}
	meta, err := tx.Messages.Get(ctx, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load message meta %s: %w", messageID, err)
	}
	return meta.GuildID, nil
}
