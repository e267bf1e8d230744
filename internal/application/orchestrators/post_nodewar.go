package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guildleague/internal/application/projections"
	"guildleague/internal/application/render"
	"guildleague/internal/domain/nodewar"
)

// NodewarMessageSaver records a posted roster.
type NodewarMessageSaver interface {
	SaveMessage(ctx context.Context, m nodewar.Message) error
}

// PostNodewarInput carries a request to publish a roster.
type PostNodewarInput struct {
	GuildID   string
	ChannelID string
	Day       string
	MaxCap    int // 0 means nodewar.DefaultCap
}

// PostNodewarDeps holds dependencies for PostNodewar.
type PostNodewarDeps struct {
	Store NodewarMessageSaver
	Chat  MessageSender
	Now   func() time.Time
}

// ExecutePostNodewar posts an empty roster and records it.
// PRE: Day is non-blank; MaxCap is 0 or within range
// POST: Returns the new message id; metadata failures are logged
func ExecutePostNodewar(ctx context.Context, input PostNodewarInput, deps PostNodewarDeps) (nodewar.Message, error) {
	day := strings.TrimSpace(input.Day)
	if day == "" {
		return nodewar.Message{}, invalid("day", "day is required")
	}
	maxCap := input.MaxCap
	if maxCap == 0 {
		maxCap = nodewar.DefaultCap
	}
	if err := nodewar.ValidateCap(maxCap); err != nil {
		return nodewar.Message{}, &ValidationError{Field: "max", Message: err.Error()}
	}

	now := deps.Now()
	msg := nodewar.Message{GuildID: input.GuildID, ChannelID: input.ChannelID, Day: day, MaxCap: maxCap, CreatedAt: now}
	view := projections.RosterResult{Message: msg}
	messageID, err := deps.Chat.Send(ctx, input.ChannelID, render.NodewarMessage(view, now))
	if err != nil {
		return nodewar.Message{}, fmt.Errorf("post nodewar message: %w", err)
	}
	msg.MessageID = messageID

	if err := deps.Store.SaveMessage(ctx, msg); err != nil {
		slog.Error("roster_event", "event", "nodewar_save_failed", "message_id", messageID, "error", err.Error())
	}
	slog.Info("roster_event", "event", "nodewar_posted", "guild_id", input.GuildID, "channel_id", input.ChannelID,
		"message_id", messageID, "day", day, "max_cap", maxCap)
	return msg, nil
}
