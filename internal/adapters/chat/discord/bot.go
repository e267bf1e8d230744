package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildleague/internal/adapters/chat"
)

// interactionTimeout bounds the work done for one interaction after it is acknowledged.
const interactionTimeout = 30 * time.Second

// NewSession creates a gateway session with the intents the bot relies on.
// Voice states feed the reminder voice check.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	return s, nil
}

// Bot connects to the gateway, registers the slash commands and dispatches interactions.
type Bot struct {
	session *discordgo.Session
	svc     Services
	guildID string
}

// NewBot creates a bot. guildID scopes command registration to one guild; empty registers globally.
func NewBot(session *discordgo.Session, svc Services, guildID string) *Bot {
	return &Bot{session: session, svc: svc, guildID: guildID}
}

// Run opens the gateway and blocks until ctx is done.
// POST: Session closed on return
func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("bot_event", "event", "ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer b.session.Close()

	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, commandDefinitions(),
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("register slash commands: %w", err)
	}
	slog.Info("bot_event", "event", "commands_registered", "count", len(registered), "guild_id", b.guildID)

	<-ctx.Done()
	slog.Info("bot_event", "event", "shutdown")
	return nil
}

func (b *Bot) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	i := ic.Interaction
	req := decode(i)
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		var flags discordgo.MessageFlags
		if !publicCommands[req.Command] {
			flags = discordgo.MessageFlagsEphemeral
		}
		if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: flags},
		}, discordgo.WithContext(ctx)); err != nil {
			slog.Error("bot_event", "event", "ack_failed", "command", req.Command, "error", err.Error())
			return
		}
		r := b.svc.handleCommand(ctx, req)
		edit := &discordgo.WebhookEdit{Content: &r.Content}
		if r.Embed != nil {
			embeds := toEmbeds([]chat.Embed{*r.Embed})
			edit.Embeds = &embeds
		}
		if _, err := s.InteractionResponseEdit(i, edit, discordgo.WithContext(ctx)); err != nil {
			slog.Error("bot_event", "event", "reply_failed", "command", req.Command, "error", err.Error())
		}

	case discordgo.InteractionMessageComponent:
		if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}, discordgo.WithContext(ctx)); err != nil {
			slog.Error("bot_event", "event", "ack_failed", "custom_id", req.CustomID, "error", err.Error())
			return
		}
		r := b.svc.handlePress(ctx, req)
		if r.Content == "" {
			return
		}
		if _, err := s.FollowupMessageCreate(i, false, &discordgo.WebhookParams{
			Content: r.Content,
			Flags:   discordgo.MessageFlagsEphemeral,
		}, discordgo.WithContext(ctx)); err != nil {
			slog.Error("bot_event", "event", "followup_failed", "custom_id", req.CustomID, "error", err.Error())
		}
	}
}
