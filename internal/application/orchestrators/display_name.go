package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/domain/stats"
)

// NameInvalidator drops a cached name so the next lookup sees the change.
type NameInvalidator interface {
	Invalidate(key string)
}

// SetDisplayNameInput carries a requested display name.
type SetDisplayNameInput struct {
	GuildID string
	UserID  string
	Name    string
}

// SetDisplayNameDeps holds dependencies for SetDisplayName.
type SetDisplayNameDeps struct {
	Roster RosterRunner
	Names  NameInvalidator // optional
}

// ExecuteSetDisplayName writes or clears a user's display-name override.
// The name is trimmed and truncated; an empty result removes the override.
// PRE: GuildID and UserID are set
// POST: Override and counter custom name agree; no counter row is created; returns the stored name
func ExecuteSetDisplayName(ctx context.Context, input SetDisplayNameInput, deps SetDisplayNameDeps) (string, error) {
	probe := stats.ParticipationStat{GuildID: input.GuildID, UserID: input.UserID}
	if err := probe.Validate(); err != nil {
		return "", &ValidationError{Message: err.Error()}
	}
	name := stats.NormalizeDisplayName(input.Name)

	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		if name == "" {
			if err := tx.Stats.DeleteOverride(ctx, input.GuildID, input.UserID); err != nil {
				return fmt.Errorf("delete override: %w", err)
			}
			return tx.Stats.SetCustomName(ctx, input.GuildID, input.UserID, "")
		}

		override := stats.NameOverride{GuildID: input.GuildID, UserID: input.UserID, DisplayName: name}
		if err := tx.Stats.SaveOverride(ctx, override); err != nil {
			return fmt.Errorf("save override: %w", err)
		}
		return tx.Stats.SetCustomName(ctx, input.GuildID, input.UserID, name)
	})
	if err != nil {
		return "", err
	}

	if deps.Names != nil {
		deps.Names.Invalidate(input.UserID)
	}
	slog.Info("stats_event", "event", "display_name_set", "guild_id", input.GuildID,
		"user_id", input.UserID, "cleared", name == "")
	return name, nil
}
