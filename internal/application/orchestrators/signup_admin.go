package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/domain/signup"
)

// SignupAdminDeps holds dependencies for dashboard edits of slot signups.
type SignupAdminDeps struct {
	Roster RosterRunner
	Now    func() time.Time
}

// RemoveUserInput names a user's entry, or all their entries when SlotTime is empty.
type RemoveUserInput struct {
	MessageID string
	UserID    string
	SlotTime  string
}

// ExecuteRemoveUserFromMessage deletes signups with their tags and counters.
// PRE: MessageID and UserID are set
// POST: Returns the number of entries removed; ErrNotFound when none matched
func ExecuteRemoveUserFromMessage(ctx context.Context, input RemoveUserInput, deps SignupAdminDeps) (int, error) {
	if input.MessageID == "" || input.UserID == "" {
		return 0, invalid("user", "message and user are required")
	}

	removed := 0
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		removed = 0
		guildID, err := statGuild(ctx, tx, "", input.MessageID)
		if err != nil {
			return err
		}

		var keys []signup.Key
		if input.SlotTime != "" {
			keys = []signup.Key{{MessageID: input.MessageID, UserID: input.UserID, SlotTime: input.SlotTime}}
		} else {
			held, err := tx.Signups.ListByUser(ctx, input.MessageID, input.UserID)
			if err != nil {
				return fmt.Errorf("list user signups: %w", err)
			}
			for _, e := range held {
				keys = append(keys, e.Key())
			}
		}

		for _, key := range keys {
			ok, err := tx.Signups.Delete(ctx, key)
			if err != nil {
				return fmt.Errorf("delete signup: %w", err)
			}
			if !ok {
				continue
			}
			removed++
			if guildID != "" {
				if err := tx.Stats.Decrement(ctx, guildID, key.UserID); err != nil {
					return fmt.Errorf("decrement stat: %w", err)
				}
			}
		}
		if removed == 0 {
			return fmt.Errorf("signup for %s on %s: %w", input.UserID, input.MessageID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("roster_event", "event", "user_removed", "message_id", input.MessageID,
		"user_id", input.UserID, "slot", input.SlotTime, "removed", removed)
	return removed, nil
}

// SetTeamInput assigns or clears the team of one signup.
type SetTeamInput struct {
	MessageID string
	UserID    string
	SlotTime  string
	Team      string // A, B or empty to clear
}

// ExecuteSetTeam writes the team tag of an existing entry.
// PRE: Team is A, B or empty
// POST: Tag written or cleared; ErrNotFound when the entry does not exist
func ExecuteSetTeam(ctx context.Context, input SetTeamInput, deps SignupAdminDeps) error {
	team := strings.ToUpper(strings.TrimSpace(input.Team))
	if !signup.IsValidTeam(team) {
		return &ValidationError{Field: "team", Message: signup.ErrInvalidTeam.Error()}
	}
	key := signup.Key{MessageID: input.MessageID, UserID: input.UserID, SlotTime: input.SlotTime}

	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		exists, err := tx.Signups.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("check signup: %w", err)
		}
		if !exists {
			return fmt.Errorf("signup %s/%s at %s: %w", key.MessageID, key.UserID, key.SlotTime, ErrNotFound)
		}
		return tx.Signups.SetTeam(ctx, key, team)
	})
	if err != nil {
		return err
	}

	slog.Info("roster_event", "event", "team_set", "message_id", key.MessageID,
		"user_id", key.UserID, "slot", key.SlotTime, "team", team)
	return nil
}

// DeleteSignupMessageResult reports what the cascade removed.
type DeleteSignupMessageResult struct {
	EntriesRemoved int
}

// ExecuteDeleteSignupMessage removes a signup message with its entries, tags and metadata.
// Counters are lowered for every removed entry.
// POST: ErrNotFound when neither metadata nor entries existed
func ExecuteDeleteSignupMessage(ctx context.Context, messageID string, deps SignupAdminDeps) (DeleteSignupMessageResult, error) {
	var result DeleteSignupMessageResult
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		meta, err := tx.Messages.Get(ctx, messageID)
		hasMeta := err == nil
		if err != nil && !isNoRows(err) {
			return fmt.Errorf("load message meta %s: %w", messageID, err)
		}

		removed, err := tx.Signups.DeleteByMessage(ctx, messageID)
		if err != nil {
			return fmt.Errorf("delete signups: %w", err)
		}
		if !hasMeta && len(removed) == 0 {
			return fmt.Errorf("signup message %s: %w", messageID, ErrNotFound)
		}
		if meta.GuildID != "" {
			for _, e := range removed {
				if err := tx.Stats.Decrement(ctx, meta.GuildID, e.UserID); err != nil {
					return fmt.Errorf("decrement stat: %w", err)
				}
			}
		}
		if hasMeta {
			if err := tx.Messages.Delete(ctx, messageID); err != nil {
				return fmt.Errorf("delete message meta: %w", err)
			}
		}
		result.EntriesRemoved = len(removed)
		return nil
	})
	if err != nil {
		return DeleteSignupMessageResult{}, err
	}

	slog.Info("roster_event", "event", "signup_message_deleted", "message_id", messageID,
		"entries", result.EntriesRemoved)
	return result, nil
}

// RenameDayInput moves a message into another day group.
type RenameDayInput struct {
	MessageID string
	Day       string
}

// ExecuteRenameDay updates the message's day, creating bare metadata for older posts.
// PRE: Day is non-blank
// POST: MessageMeta.Day = Day
func ExecuteRenameDay(ctx context.Context, input RenameDayInput, deps SignupAdminDeps) error {
	day := strings.TrimSpace(input.Day)
	if day == "" {
		return &ValidationError{Field: "day", Message: signup.ErrEmptyDay.Error()}
	}
	if input.MessageID == "" {
		return &ValidationError{Field: "message", Message: signup.ErrEmptyMessageID.Error()}
	}

	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		meta, err := tx.Messages.Get(ctx, input.MessageID)
		if isNoRows(err) {
			meta = signup.MessageMeta{MessageID: input.MessageID, CreatedAt: deps.Now()}
		} else if err != nil {
			return fmt.Errorf("load message meta %s: %w", input.MessageID, err)
		}
		meta.Day = day
		return tx.Messages.Save(ctx, meta)
	})
	if err != nil {
		return err
	}

	slog.Info("roster_event", "event", "day_renamed", "message_id", input.MessageID, "day", day)
	return nil
}
