package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/application/render"
	"guildleague/internal/domain/leagueconfig"
	"guildleague/internal/domain/signup"
)

// ConfigStoreForLeague is the league schedule surface used by setup and post.
type ConfigStoreForLeague interface {
	Get(ctx context.Context, guildID, day string) (leagueconfig.Config, error)
	Save(ctx context.Context, c leagueconfig.Config) error
}

// MessageSender posts a rendered message. chat.Platform satisfies it.
type MessageSender interface {
	Send(ctx context.Context, channelID string, msg chat.Message) (string, error)
}

// MessageMetaSaver records where a signup message was posted.
type MessageMetaSaver interface {
	Save(ctx context.Context, m signup.MessageMeta) error
}

// SetupLeagueInput carries a schedule definition.
type SetupLeagueInput struct {
	GuildID string
	Day     string
	Ranges  string // "HH:mm-HH:mm, HH:mm-HH:mm"
}

// SetupLeagueDeps holds dependencies for SetupLeague.
type SetupLeagueDeps struct {
	Configs ConfigStoreForLeague
}

// ExecuteSetupLeague validates and stores the schedule for a guild and day.
// PRE: Ranges use 24h HH:mm times
// POST: Config replaced; ValidationError for malformed ranges with nothing written
func ExecuteSetupLeague(ctx context.Context, input SetupLeagueInput, deps SetupLeagueDeps) (leagueconfig.Config, error) {
	ranges, err := leagueconfig.ParseRanges(input.Ranges)
	if err != nil {
		return leagueconfig.Config{}, &ValidationError{Field: "ranges", Message: err.Error()}
	}
	cfg := leagueconfig.Config{
		GuildID: strings.TrimSpace(input.GuildID),
		Day:     strings.TrimSpace(input.Day),
		Ranges:  ranges,
	}
	if err := cfg.Validate(); err != nil {
		return leagueconfig.Config{}, &ValidationError{Message: err.Error()}
	}
	if err := deps.Configs.Save(ctx, cfg); err != nil {
		return leagueconfig.Config{}, fmt.Errorf("save league config: %w", err)
	}

	slog.Info("league_event", "event", "config_saved", "guild_id", cfg.GuildID, "day", cfg.Day,
		"ranges", leagueconfig.FormatRanges(cfg.Ranges))
	return cfg, nil
}

// PostSignupInput carries a request to publish a signup message.
type PostSignupInput struct {
	GuildID   string
	ChannelID string
	Day       string
	TeamMode  string // A, B or empty
}

// PostSignupResult identifies the posted message.
type PostSignupResult struct {
	MessageID string
	Slots     []string
}

// PostSignupDeps holds dependencies for PostSignup.
type PostSignupDeps struct {
	Configs  ConfigStoreForLeague
	Messages MessageMetaSaver
	Chat     MessageSender
	Now      func() time.Time
}

// ExecutePostSignup renders the day's slots as buttons, posts them and records metadata.
// PRE: A config exists for GuildID and Day
// POST: Message posted; metadata failures are logged, the post stands without grouping
func ExecutePostSignup(ctx context.Context, input PostSignupInput, deps PostSignupDeps) (PostSignupResult, error) {
	mode := strings.ToUpper(strings.TrimSpace(input.TeamMode))
	if !signup.IsValidTeam(mode) {
		return PostSignupResult{}, &ValidationError{Field: "team", Message: signup.ErrInvalidTeam.Error()}
	}

	cfg, err := deps.Configs.Get(ctx, input.GuildID, input.Day)
	if isNoRows(err) {
		return PostSignupResult{}, &ValidationError{
			Field:   "day",
			Message: fmt.Sprintf("No configuration found for **%s**. Please use /setup_league first.", input.Day),
		}
	}
	if err != nil {
		return PostSignupResult{}, fmt.Errorf("load league config: %w", err)
	}

	slots := leagueconfig.GenerateSlots(cfg.Ranges)
	if len(slots) > leagueconfig.MaxSlotsPerMessage {
		return PostSignupResult{}, &ValidationError{
			Field:   "ranges",
			Message: fmt.Sprintf("Too many slots generated (%d). Discord limits buttons to %d. Please reduce the range.", len(slots), leagueconfig.MaxSlotsPerMessage),
		}
	}

	msg := render.SignupMessage(render.EmptySignup(input.Day, mode, slots))
	messageID, err := deps.Chat.Send(ctx, input.ChannelID, msg)
	if err != nil {
		return PostSignupResult{}, fmt.Errorf("post signup message: %w", err)
	}

	meta := signup.MessageMeta{
		MessageID: messageID,
		GuildID:   input.GuildID,
		ChannelID: input.ChannelID,
		Day:       input.Day,
		TeamMode:  mode,
		Slots:     slots,
		CreatedAt: deps.Now(),
	}
	if err := deps.Messages.Save(ctx, meta); err != nil {
		slog.Error("league_event", "event", "meta_save_failed", "message_id", messageID, "error", err.Error())
	}

	slog.Info("league_event", "event", "signup_posted", "guild_id", input.GuildID, "channel_id", input.ChannelID,
		"message_id", messageID, "day", input.Day, "team_mode", mode, "slots", len(slots))
	return PostSignupResult{MessageID: messageID, Slots: slots}, nil
}
