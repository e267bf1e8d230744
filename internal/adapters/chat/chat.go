// Package chat defines the chat-platform port used by the roster engine and
// its renderers. Implementations live in subpackages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Platform errors. Callers branch on these with errors.Is; they are distinct
// from storage errors so a failed render never looks like a failed mutation.
var (
	ErrNotFound       = errors.New("chat: not found")
	ErrNotTextChannel = errors.New("chat: channel is not text-capable")
)

// TransportError wraps a failed call to the platform.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chat %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ButtonStyle selects the visual weight of a button.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Button is an interactive control. CustomID is echoed back on press.
type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
}

// Field is one named block of an embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a structured card rendered by the platform.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Timestamp   time.Time
}

// Message is the renderable content of a post or an edit.
// Mentions lists the user ids the platform may ping; others render inert.
type Message struct {
	Content  string
	Embeds   []Embed
	Rows     [][]Button
	Mentions []string
}

// Layout is the declared structure recovered from an already posted message.
type Layout struct {
	Title     string
	ButtonIDs []string
}

// Platform is the outbound surface of the chat platform.
// Every method may fail with ErrNotFound or a *TransportError.
type Platform interface {
	// Send posts msg to a channel and returns the new message id.
	// Fails with ErrNotTextChannel when the channel cannot hold messages.
	Send(ctx context.Context, channelID string, msg Message) (string, error)
	// Edit replaces the embeds of a posted message, and its controls when
	// msg.Rows is non-nil. Nil Rows keeps the existing controls.
	Edit(ctx context.Context, channelID, messageID string, msg Message) error
	// Layout reads the title and control ids of a posted message.
	Layout(ctx context.Context, channelID, messageID string) (Layout, error)
	// VoiceChannel returns the voice channel the user sits in, or "" when none.
	VoiceChannel(ctx context.Context, guildID, userID string) (string, error)
	// UserName resolves a user id to the platform username.
	UserName(ctx context.Context, userID string) (string, error)
	// GuildName resolves a guild id to its name.
	GuildName(ctx context.Context, guildID string) (string, error)
}

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
