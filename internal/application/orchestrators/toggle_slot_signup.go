package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/application/grouping"
	"guildleague/internal/domain/signup"
)

// Toggle outcomes.
const (
	ActionJoined = "joined"
	ActionLeft   = "left"
)

// ToggleSlotSignupInput carries one slot button press.
type ToggleSlotSignupInput struct {
	MessageID   string
	GuildID     string // from the interaction; may be empty in DMs
	UserID      string
	SlotTime    string
	DisplayName string
	TeamMode    string // A, B or empty
}

// ToggleSlotSignupResult says what happened and which sibling views are stale.
type ToggleSlotSignupResult struct {
	Action             string
	AffectedMessageIDs []string
}

// ToggleSlotSignupDeps holds dependencies for ToggleSlotSignup.
type ToggleSlotSignupDeps struct {
	Roster RosterRunner
	Now    func() time.Time
}

// ExecuteToggleSlotSignup joins or leaves a slot, keeping one slot per user per group.
// PRE: input identifies a message, user and slot
// POST: Existing entry removed (left), or sibling entries at the same slot removed and
// a new entry inserted (joined); tags and counters adjusted in the same transaction
// INVARIANT: the user holds at most one entry for SlotTime across the message group
func ExecuteToggleSlotSignup(ctx context.Context, input ToggleSlotSignupInput, deps ToggleSlotSignupDeps) (ToggleSlotSignupResult, error) {
	entry := signup.Entry{
		MessageID:   input.MessageID,
		UserID:      input.UserID,
		SlotTime:    input.SlotTime,
		DisplayName: input.DisplayName,
		Team:        input.TeamMode,
		JoinedAt:    deps.Now(),
	}
	if err := entry.Validate(); err != nil {
		return ToggleSlotSignupResult{}, &ValidationError{Message: err.Error()}
	}

	var result ToggleSlotSignupResult
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		result = ToggleSlotSignupResult{}
		guildID, err := statGuild(ctx, tx, input.GuildID, input.MessageID)
		if err != nil {
			return err
		}

		exists, err := tx.Signups.Exists(ctx, entry.Key())
		if err != nil {
			return fmt.Errorf("check signup: %w", err)
		}
		if exists {
			if err := removeEntry(ctx, tx, entry.Key(), guildID); err != nil {
				return err
			}
			result.Action = ActionLeft
			return nil
		}

		group, err := grouping.ResolveGroup(ctx, tx.Messages, input.MessageID)
		if err != nil {
			return err
		}
		conflicts, err := tx.Signups.FindUserSlot(ctx, siblingsOf(group, input.MessageID), input.UserID, input.SlotTime)
		if err != nil {
			return fmt.Errorf("find sibling signups: %w", err)
		}
		for _, c := range conflicts {
			if err := removeEntry(ctx, tx, c.Key(), guildID); err != nil {
				return err
			}
			result.AffectedMessageIDs = appendUnique(result.AffectedMessageIDs, c.MessageID)
		}

		inserted, err := tx.Signups.Insert(ctx, entry)
		if err != nil {
			return fmt.Errorf("insert signup: %w", err)
		}
		if inserted && guildID != "" {
			if err := tx.Stats.Increment(ctx, guildID, input.UserID, entry.JoinedAt); err != nil {
				return fmt.Errorf("increment stat: %w", err)
			}
		}
		result.Action = ActionJoined
		return nil
	})
	if err != nil {
		return ToggleSlotSignupResult{}, err
	}

	slog.Info("roster_event", "event", "slot_"+result.Action, "message_id", input.MessageID,
		"user_id", input.UserID, "slot", input.SlotTime, "team", input.TeamMode,
		"affected", len(result.AffectedMessageIDs))
	return result, nil
}

// removeEntry deletes one signup with its tag and lowers the counter.
func removeEntry(ctx context.Context, tx roster.Tx, key signup.Key, guildID string) error {
	removed, err := tx.Signups.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("delete signup: %w", err)
	}
	if removed && guildID != "" {
		if err := tx.Stats.Decrement(ctx, guildID, key.UserID); err != nil {
			return fmt.Errorf("decrement stat: %w", err)
		}
	}
	return nil
}

func siblingsOf(group []string, messageID string) []string {
	out := make([]string, 0, len(group))
	for _, id := range group {
		if id != messageID {
			out = append(out, id)
		}
	}
	return out
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
