package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// NoopPlatform logs outbound calls without a gateway connection.
// It backs the dashboard when no bot token is configured.
type NoopPlatform struct {
	seq atomic.Int64
}

// NewNoopPlatform creates a NoopPlatform.
func NewNoopPlatform() *NoopPlatform {
	return &NoopPlatform{}
}

// Send logs the message and returns a synthetic id.
func (p *NoopPlatform) Send(_ context.Context, channelID string, msg Message) (string, error) {
	id := fmt.Sprintf("noop-%d", p.seq.Add(1))
	slog.Info("noop_chat_send", "channel_id", channelID, "message_id", id, "embeds", len(msg.Embeds), "mentions", len(msg.Mentions))
	return id, nil
}

// Edit logs the edit.
func (p *NoopPlatform) Edit(_ context.Context, channelID, messageID string, msg Message) error {
	slog.Info("noop_chat_edit", "channel_id", channelID, "message_id", messageID, "embeds", len(msg.Embeds))
	return nil
}

// Layout has nothing to read.
func (p *NoopPlatform) Layout(context.Context, string, string) (Layout, error) {
	return Layout{}, ErrNotFound
}

// VoiceChannel reports nobody in voice.
func (p *NoopPlatform) VoiceChannel(context.Context, string, string) (string, error) {
	return "", nil
}

// UserName cannot resolve without a gateway.
func (p *NoopPlatform) UserName(context.Context, string) (string, error) {
	return "", ErrNotFound
}

// GuildName cannot resolve without a gateway.
func (p *NoopPlatform) GuildName(context.Context, string) (string, error) {
	return "", ErrNotFound
}
