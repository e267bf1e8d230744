package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/application/orchestrators"
	"guildleague/internal/application/projections"
	"guildleague/internal/application/render"
	"guildleague/internal/domain/command"
	"guildleague/internal/domain/nodewar"
	"guildleague/internal/domain/outbox"
)

// Generic failure replies. Details go to the log only.
const (
	replyCommandFailed = "There was an error executing this command!"
	replyPressFailed   = "There was an error processing your request."
)

// Services is what the bot needs from the application layer.
type Services struct {
	Roster   orchestrators.RosterRunner
	Configs  orchestrators.ConfigStoreForLeague
	Messages orchestrators.MessageMetaSaver
	Nodewar  orchestrators.NodewarMessageSaver
	Stats    projections.StatsStore
	Chat     chat.Platform
	Refresh  orchestrators.RefreshViewsDeps
	Users    projections.NameLookup        // optional
	Names    orchestrators.NameInvalidator // optional
	Now      func() time.Time
}

// handleCommand runs one slash command and returns the reply text or embed.
func (s Services) handleCommand(ctx context.Context, req request) reply {
	switch req.Command {
	case cmdSetupLeague:
		return s.setupLeague(ctx, req)
	case cmdPostSignup:
		return s.postSignup(ctx, req)
	case cmdPostNodewar:
		return s.postNodewar(ctx, req)
	case cmdEditNodewar:
		return s.editNodewar(ctx, req)
	case cmdSetName:
		return s.setName(ctx, req)
	case cmdLeagueStats:
		return s.leagueStats(ctx, req)
	default:
		slog.Warn("bot_event", "event", "unknown_command", "command", req.Command)
		return reply{Content: replyCommandFailed}
	}
}

func (s Services) setupLeague(ctx context.Context, req request) reply {
	day, ranges := req.Strings["day"], req.Strings["ranges"]
	_, err := orchestrators.ExecuteSetupLeague(ctx, orchestrators.SetupLeagueInput{GuildID: req.GuildID, Day: day, Ranges: ranges},
		orchestrators.SetupLeagueDeps{Configs: s.Configs})
	if err != nil {
		var ve *orchestrators.ValidationError
		if errors.As(err, &ve) {
			return reply{Content: fmt.Sprintf("Invalid ranges: %s. Use \"HH:mm-HH:mm, HH:mm-HH:mm\" (24h).", ve.Message)}
		}
		return s.commandFailed(req, err, "Failed to save configuration.")
	}
	return reply{Content: fmt.Sprintf("Configuration saved for **%s** with ranges: %s", strings.TrimSpace(day), ranges)}
}

func (s Services) postSignup(ctx context.Context, req request) reply {
	day := req.Strings["day"]
	res, err := orchestrators.ExecutePostSignup(ctx, orchestrators.PostSignupInput{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Day:       day,
		TeamMode:  req.Strings["team"],
	}, orchestrators.PostSignupDeps{Configs: s.Configs, Messages: s.Messages, Chat: s.Chat, Now: s.Now})
	if err != nil {
		if r, ok := validationReply(err); ok {
			return r
		}
		return s.commandFailed(req, err, replyCommandFailed)
	}
	return reply{Content: fmt.Sprintf("Signups for **%s** posted with %d slots.", day, len(res.Slots))}
}

func (s Services) postNodewar(ctx context.Context, req request) reply {
	msg, err := orchestrators.ExecutePostNodewar(ctx, orchestrators.PostNodewarInput{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Day:       req.Strings["day"],
		MaxCap:    int(req.Ints["max"]),
	}, orchestrators.PostNodewarDeps{Store: s.Nodewar, Chat: s.Chat, Now: s.Now})
	if err != nil {
		if r, ok := validationReply(err); ok {
			return r
		}
		return s.commandFailed(req, err, replyCommandFailed)
	}
	return reply{Content: fmt.Sprintf("Node War signup for **%s** posted (max %d).", msg.Day, msg.MaxCap)}
}

func (s Services) editNodewar(ctx context.Context, req request) reply {
	messageID := strings.TrimSpace(req.Strings["message_id"])
	newMax := int(req.Ints["max"])
	res, err := orchestrators.ExecuteUpdateNodewarCap(ctx, orchestrators.UpdateNodewarCapInput{MessageID: messageID, MaxCap: newMax},
		orchestrators.NodewarDeps{Roster: s.Roster, Now: s.Now})
	if errors.Is(err, orchestrators.ErrNotFound) {
		return reply{Content: "❌ No Node War signup found with that message ID."}
	}
	if err != nil {
		if r, ok := validationReply(err); ok {
			return r
		}
		return s.commandFailed(req, err, replyCommandFailed)
	}

	s.refresh(ctx, orchestrators.RefreshTarget{Action: outbox.ActionRefreshNodewar, MessageID: messageID, Hint: req.hint()})
	return reply{Content: capChangeText(res, newMax)}
}

// capChangeText summarises a cap change and the players it moved.
func capChangeText(res orchestrators.UpdateNodewarCapResult, newMax int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **%s** cap updated: **%d** → **%d**", res.Day, res.PreviousCap, newMax)
	if res.Demoted > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d %s moved to the waiting list.", res.Demoted, plural(res.Demoted, "player"))
	}
	if res.Promoted > 0 {
		fmt.Fprintf(&b, "\n🎉 %d %s promoted from the waiting list.", res.Promoted, plural(res.Promoted, "player"))
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func (s Services) setName(ctx context.Context, req request) reply {
	userID := req.Users["user"]
	stored, err := orchestrators.ExecuteSetDisplayName(ctx, orchestrators.SetDisplayNameInput{
		GuildID: req.GuildID,
		UserID:  userID,
		Name:    req.Strings["name"],
	}, orchestrators.SetDisplayNameDeps{Roster: s.Roster, Names: s.Names})
	if err != nil {
		if r, ok := validationReply(err); ok {
			return r
		}
		return s.commandFailed(req, err, replyCommandFailed)
	}
	if stored == "" {
		username := req.UserNames[userID]
		if username == "" {
			username = userID
		}
		return reply{Content: fmt.Sprintf("✅ Removed name override for <@%s>. They will show as **%s**.", userID, username)}
	}
	return reply{Content: fmt.Sprintf("✅ <@%s> will now display as **%s** in signups.", userID, stored)}
}

func (s Services) leagueStats(ctx context.Context, req request) reply {
	view, err := projections.QueryGetLeagueStats(ctx, req.GuildID, projections.GetLeagueStatsDeps{Stats: s.Stats, Users: s.Users})
	if err != nil {
		return s.commandFailed(req, err, replyCommandFailed)
	}
	embed := render.LeagueStatsEmbed(view, s.Now())
	return reply{Embed: &embed}
}

// hint locates the interaction's message for views rendered without metadata.
func (r request) hint() orchestrators.ViewHint {
	return orchestrators.ViewHint{ChannelID: r.ChannelID, GuildID: r.GuildID}
}

// handlePress runs one button press. Most presses answer by editing the
// message; the reply is only non-empty for things the presser must be told.
func (s Services) handlePress(ctx context.Context, req request) reply {
	switch cmd := command.Parse(req.CustomID).(type) {
	case command.SlotToggle:
		res, err := orchestrators.ExecuteToggleSlotSignup(ctx, orchestrators.ToggleSlotSignupInput{
			MessageID:   req.MessageID,
			GuildID:     req.GuildID,
			UserID:      req.UserID,
			SlotTime:    cmd.SlotTime,
			DisplayName: req.UserName,
			TeamMode:    cmd.TeamMode,
		}, orchestrators.ToggleSlotSignupDeps{Roster: s.Roster, Now: s.Now})
		if err != nil {
			return s.pressFailed(req, err)
		}
		ids := append([]string{req.MessageID}, res.AffectedMessageIDs...)
		s.refresh(ctx, orchestrators.SignupTargets(req.hint(), ids...)...)
		return reply{}

	case command.NodewarJoin:
		res, err := orchestrators.ExecuteJoinNodewar(ctx, orchestrators.JoinNodewarInput{
			MessageID:   req.MessageID,
			UserID:      req.UserID,
			DisplayName: req.UserName,
		}, orchestrators.NodewarDeps{Roster: s.Roster, Now: s.Now})
		if errors.Is(err, orchestrators.ErrNotFound) {
			return reply{Content: "This Node War signup is no longer active."}
		}
		if err != nil {
			return s.pressFailed(req, err)
		}
		s.refresh(ctx, orchestrators.RefreshTarget{Action: outbox.ActionRefreshNodewar, MessageID: req.MessageID, Hint: req.hint()})
		if res.Joined && res.Status == nodewar.StatusWaitlist {
			return reply{Content: "⏳ The roster is full. You have been added to the waiting list."}
		}
		return reply{}

	case command.NodewarLeave:
		res, err := orchestrators.ExecuteLeaveNodewar(ctx, orchestrators.LeaveNodewarInput{MessageID: req.MessageID, UserID: req.UserID},
			orchestrators.NodewarDeps{Roster: s.Roster, Now: s.Now})
		if errors.Is(err, orchestrators.ErrNotFound) {
			return reply{Content: "This Node War signup is no longer active."}
		}
		if err != nil {
			return s.pressFailed(req, err)
		}
		if res.Left {
			s.refresh(ctx, orchestrators.RefreshTarget{Action: outbox.ActionRefreshNodewar, MessageID: req.MessageID, Hint: req.hint()})
		}
		return reply{}

	case command.Unknown:
		slog.Warn("bot_event", "event", "unknown_button", "custom_id", cmd.CustomID, "message_id", req.MessageID)
		return reply{}
	}
	return reply{}
}

// refresh re-renders stale views; failures are deferred, never surfaced.
func (s Services) refresh(ctx context.Context, targets ...orchestrators.RefreshTarget) {
	res := orchestrators.ExecuteRefreshViews(ctx, targets, s.Refresh)
	if len(res.Deferred) > 0 || len(res.Dropped) > 0 {
		slog.Warn("bot_event", "event", "refresh_incomplete", "deferred", res.Deferred, "dropped", res.Dropped)
	}
}

func validationReply(err error) (reply, bool) {
	var ve *orchestrators.ValidationError
	if errors.As(err, &ve) {
		return reply{Content: ve.Message}, true
	}
	return reply{}, false
}

func (s Services) commandFailed(req request, err error, content string) reply {
	slog.Error("bot_event", "event", "command_failed", "command", req.Command, "guild_id", req.GuildID,
		"user_id", req.UserID, "error", err.Error())
	return reply{Content: content}
}

func (s Services) pressFailed(req request, err error) reply {
	slog.Error("bot_event", "event", "press_failed", "custom_id", req.CustomID, "message_id", req.MessageID,
		"user_id", req.UserID, "error", err.Error())
	return reply{Content: replyPressFailed}
}
