package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/application/projections"
	"guildleague/internal/application/render"
	"guildleague/internal/domain/outbox"
)

// ErrNoChannel is returned when a message's channel cannot be determined.
var ErrNoChannel = errors.New("message channel unknown")

// MessageEditor edits a posted message. chat.Platform satisfies it.
type MessageEditor interface {
	Edit(ctx context.Context, channelID, messageID string, msg chat.Message) error
}

// ViewRenderer re-renders posted messages from current roster state.
type ViewRenderer struct {
	Slots   projections.ProjectSlotsDeps
	Rosters projections.ProjectRosterDeps
	Chat    MessageEditor
	Now     func() time.Time
}

// ViewHint locates a message that has no stored metadata.
type ViewHint struct {
	ChannelID string `json:"channel_id,omitempty"`
	GuildID   string `json:"guild_id,omitempty"`
}

// Refresh renders one message. action is outbox.ActionRefreshSignup or outbox.ActionRefreshNodewar.
// Controls are left untouched; only embeds are replaced.
// PRE: messageID is non-empty
// POST: Message edited, or an error saying why not
func (r *ViewRenderer) Refresh(ctx context.Context, action, messageID string, hint ViewHint) error {
	switch action {
	case outbox.ActionRefreshSignup:
		view, err := projections.QueryProjectSlots(ctx, projections.ProjectSlotsQuery{
			MessageID: messageID,
			ChannelID: hint.ChannelID,
			GuildID:   hint.GuildID,
		}, r.Slots)
		if err != nil {
			return err
		}
		if view.ChannelID == "" {
			return fmt.Errorf("signup message %s: %w", messageID, ErrNoChannel)
		}
		return r.Chat.Edit(ctx, view.ChannelID, messageID, chat.Message{Embeds: []chat.Embed{render.SignupEmbed(view)}})
	case outbox.ActionRefreshNodewar:
		view, err := projections.QueryProjectRoster(ctx, messageID, r.Rosters)
		if err != nil {
			return err
		}
		channel := view.Message.ChannelID
		if channel == "" {
			channel = hint.ChannelID
		}
		if channel == "" {
			return fmt.Errorf("nodewar message %s: %w", messageID, ErrNoChannel)
		}
		return r.Chat.Edit(ctx, channel, messageID, chat.Message{Embeds: []chat.Embed{render.NodewarEmbed(view, r.Now())}})
	default:
		return fmt.Errorf("unknown refresh action %q", action)
	}
}

// Executors exposes the refresh actions to the outbox processor.
func (r *ViewRenderer) Executors() map[string]ActionExecutor {
	executor := func(action string) ActionExecutor {
		return ActionExecutorFunc(func(ctx context.Context, target, payload string) error {
			var hint ViewHint
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &hint); err != nil {
					return fmt.Errorf("unmarshal payload: %w", err)
				}
			}
			return r.Refresh(ctx, action, target, hint)
		})
	}
	return map[string]ActionExecutor{
		outbox.ActionRefreshSignup:  executor(outbox.ActionRefreshSignup),
		outbox.ActionRefreshNodewar: executor(outbox.ActionRefreshNodewar),
	}
}

// ViewRefresher renders one message now.
type ViewRefresher interface {
	Refresh(ctx context.Context, action, messageID string, hint ViewHint) error
}

// OutboxEnqueuer stores deferred tasks, coalescing open ones.
type OutboxEnqueuer interface {
	FindOpen(ctx context.Context, actionType, target string) (outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
}

// RefreshTarget names one message whose view is stale.
type RefreshTarget struct {
	Action    string // outbox.ActionRefreshSignup or outbox.ActionRefreshNodewar
	MessageID string
	Hint      ViewHint
}

// SignupTargets builds refresh targets for signup messages.
func SignupTargets(hint ViewHint, messageIDs ...string) []RefreshTarget {
	out := make([]RefreshTarget, 0, len(messageIDs))
	for _, id := range messageIDs {
		out = append(out, RefreshTarget{Action: outbox.ActionRefreshSignup, MessageID: id, Hint: hint})
	}
	return out
}

// RefreshViewsDeps holds dependencies for RefreshViews.
type RefreshViewsDeps struct {
	Renderer   ViewRefresher
	Outbox     OutboxEnqueuer
	GenerateID func() string
	Now        func() time.Time
}

// RefreshViewsResult sorts targets by outcome.
type RefreshViewsResult struct {
	Refreshed []string
	Deferred  []string // queued for the background worker
	Dropped   []string // message gone or unlocatable; nothing to retry
}

// ExecuteRefreshViews renders each stale message, deferring transient failures to the outbox.
// It never fails the mutation that preceded it.
// POST: Every target is refreshed, deferred or dropped
func ExecuteRefreshViews(ctx context.Context, targets []RefreshTarget, deps RefreshViewsDeps) RefreshViewsResult {
	var result RefreshViewsResult
	for _, t := range targets {
		err := deps.Renderer.Refresh(ctx, t.Action, t.MessageID, t.Hint)
		switch {
		case err == nil:
			result.Refreshed = append(result.Refreshed, t.MessageID)
		case errors.Is(err, chat.ErrNotFound), errors.Is(err, ErrNoChannel), isNoRows(err):
			slog.Warn("render_event", "event", "refresh_dropped", "action", t.Action, "message_id", t.MessageID, "error", err.Error())
			result.Dropped = append(result.Dropped, t.MessageID)
		default:
			slog.Warn("render_event", "event", "refresh_deferred", "action", t.Action, "message_id", t.MessageID, "error", err.Error())
			payload, _ := json.Marshal(t.Hint)
			if qerr := enqueue(ctx, deps.Outbox, t.Action, t.MessageID, string(payload), err, deps.GenerateID, deps.Now); qerr != nil {
				slog.Error("render_event", "event", "enqueue_failed", "message_id", t.MessageID, "error", qerr.Error())
				result.Dropped = append(result.Dropped, t.MessageID)
				continue
			}
			result.Deferred = append(result.Deferred, t.MessageID)
		}
	}
	return result
}

// enqueue stores a retryable task unless an open one already covers the target.
func enqueue(ctx context.Context, store OutboxEnqueuer, action, target, payload string, cause error,
	generateID func() string, now func() time.Time) error {
	if store == nil {
		return errors.New("no outbox configured")
	}
	if _, err := store.FindOpen(ctx, action, target); err == nil {
		return nil
	} else if !isNoRows(err) {
		return fmt.Errorf("find open outbox entry: %w", err)
	}

	entry := outbox.Entry{
		ID:         generateID(),
		ActionType: action,
		Target:     target,
		Payload:    payload,
		Status:     outbox.StatusPending,
		CreatedAt:  now(),
	}
	if cause != nil {
		entry.ErrorMessage = cause.Error()
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return store.Save(ctx, entry)
}
