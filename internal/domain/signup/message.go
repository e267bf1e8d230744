package signup

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyDay is returned when a message is renamed to a blank day.
var ErrEmptyDay = errors.New("day is required")

// MessageMeta records where a signup message was posted and which day group it belongs to.
// Rows created for messages posted before metadata existed may lack guild and channel.
type MessageMeta struct {
	MessageID string
	GuildID   string
	ChannelID string
	Day       string
	TeamMode  string   // A, B or empty
	Slots     []string // declared slot order at post time
	CreatedAt time.Time
}

// Validate checks that the meta row has an identity and a valid team mode.
// PRE: MessageMeta struct is populated
// POST: Returns nil if valid, error otherwise
func (m MessageMeta) Validate() error {
	if strings.TrimSpace(m.MessageID) == "" {
		return ErrEmptyMessageID
	}
	if !IsValidTeam(m.TeamMode) {
		return ErrInvalidTeam
	}
	return nil
}

// HasGroupKey reports whether the message can be grouped with siblings.
// Messages without a guild or day form a singleton group.
func (m MessageMeta) HasGroupKey() bool {
	return m.GuildID != "" && m.Day != ""
}

// FieldPrefix returns the embed field label prefix for the message's team mode.
func FieldPrefix(teamMode string) string {
	switch teamMode {
	case TeamA:
		return "🟥 Team A •"
	case TeamB:
		return "🟩 Team B •"
	default:
		return "🫄🏿"
	}
}
