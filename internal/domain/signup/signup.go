package signup

import (
	"errors"
	"strings"
	"time"
)

// Team tag values. An empty team means no assignment.
const (
	TeamA    = "A"
	TeamB    = "B"
	TeamNone = ""
)

// Domain errors.
var (
	ErrEmptyMessageID = errors.New("message id is required")
	ErrEmptyUserID    = errors.New("user id is required")
	ErrEmptySlotTime  = errors.New("slot time is required")
	ErrInvalidTeam    = errors.New("team must be A, B or empty")
)

// Entry is one user's attendance for one slot on one posted message.
type Entry struct {
	MessageID   string
	UserID      string
	SlotTime    string
	DisplayName string
	Team        string // A, B or empty; carried from the team tag when loaded
	JoinedAt    time.Time
}

// Validate checks that the Entry identifies a message, user and slot.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e Entry) Validate() error {
	if strings.TrimSpace(e.MessageID) == "" {
		return ErrEmptyMessageID
	}
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(e.SlotTime) == "" {
		return ErrEmptySlotTime
	}
	if !IsValidTeam(e.Team) {
		return ErrInvalidTeam
	}
	return nil
}

// IsValidTeam reports whether team is one of the accepted tag values.
func IsValidTeam(team string) bool {
	return team == TeamA || team == TeamB || team == TeamNone
}

// IsTeamMode reports whether a signup carries a team tag.
func IsTeamMode(mode string) bool {
	return mode == TeamA || mode == TeamB
}

// Key identifies an entry within the roster store.
type Key struct {
	MessageID string
	UserID    string
	SlotTime  string
}

// Key returns the composite identity of the entry.
func (e Entry) Key() Key {
	return Key{MessageID: e.MessageID, UserID: e.UserID, SlotTime: e.SlotTime}
}
