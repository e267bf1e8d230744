// Package command turns interactive-control identifiers into typed commands.
package command

import (
	"strings"

	"guildleague/internal/domain/signup"
)

// Custom id prefixes and fixed identifiers emitted on posted messages.
const (
	SignupPrefix   = "signup"
	NodewarJoinID  = "nodewar_signup"
	NodewarLeaveID = "nodewar_leave"

	// UnassignedMode is the explicit team segment for signups without a team.
	UnassignedMode = "M"
)

// Command is the closed set of actions a button press can request.
type Command interface {
	isCommand()
}

// SlotToggle joins or leaves one slot on a time-slot signup message.
// TeamMode is A, B or empty when the button carried no team segment.
type SlotToggle struct {
	TeamMode string
	SlotTime string
}

// NodewarJoin adds the presser to a capacity-bounded roster.
type NodewarJoin struct{}

// NodewarLeave removes the presser from a capacity-bounded roster.
type NodewarLeave struct{}

// Unknown is any identifier the bot did not emit.
type Unknown struct {
	CustomID string
}

func (SlotToggle) isCommand()   {}
func (NodewarJoin) isCommand()  {}
func (NodewarLeave) isCommand() {}
func (Unknown) isCommand()      {}

// Parse decodes a control identifier.
// Forms: signup_<team>_<slot>, signup_<slot>, nodewar_signup, nodewar_leave.
// The slot keeps its underscores; a second segment is a team only when it is A, B or M.
// PRE: none
// POST: Returns exactly one concrete Command; never nil
func Parse(customID string) Command {
	switch customID {
	case NodewarJoinID:
		return NodewarJoin{}
	case NodewarLeaveID:
		return NodewarLeave{}
	}

	parts := strings.Split(customID, "_")
	if parts[0] != SignupPrefix || len(parts) < 2 {
		return Unknown{CustomID: customID}
	}
	if len(parts) >= 3 && isTeamSegment(parts[1]) {
		slot := strings.Join(parts[2:], "_")
		if slot == "" {
			return Unknown{CustomID: customID}
		}
		mode := parts[1]
		if mode == UnassignedMode {
			mode = signup.TeamNone
		}
		return SlotToggle{TeamMode: mode, SlotTime: slot}
	}
	slot := strings.Join(parts[1:], "_")
	if slot == "" {
		return Unknown{CustomID: customID}
	}
	return SlotToggle{SlotTime: slot}
}

func isTeamSegment(s string) bool {
	return signup.IsTeamMode(s) || s == UnassignedMode
}

// SlotButtonID builds the identifier Parse decodes back into a SlotToggle.
func SlotButtonID(teamMode, slot string) string {
	if signup.IsTeamMode(teamMode) {
		return SignupPrefix + "_" + teamMode + "_" + slot
	}
	return SignupPrefix + "_" + slot
}
