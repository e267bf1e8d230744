package projections

import (
	"context"
	"fmt"

	"guildleague/internal/domain/nodewar"
)

// RosterEntry is one roster member as displayed.
type RosterEntry struct {
	UserID   string
	Name     string
	Position int
}

// RosterResult is the render-ready state of a capacity-bounded roster.
type RosterResult struct {
	Message  nodewar.Message
	Signed   []RosterEntry
	Waitlist []RosterEntry
}

// Remaining returns how many signed spots are still open.
func (r RosterResult) Remaining() int {
	n := r.Message.MaxCap - len(r.Signed)
	if n < 0 {
		return 0
	}
	return n
}

// ProjectRosterDeps holds dependencies for the roster projection.
type ProjectRosterDeps struct {
	Nodewar   NodewarStore
	Overrides OverrideStore
}

// QueryProjectRoster splits a roster into signed and waitlist, each by position.
// PRE: messageID is non-empty
// POST: Returns sql.ErrNoRows (wrapped) for an unknown message
func QueryProjectRoster(ctx context.Context, messageID string, deps ProjectRosterDeps) (RosterResult, error) {
	msg, err := deps.Nodewar.GetMessage(ctx, messageID)
	if err != nil {
		return RosterResult{}, fmt.Errorf("load nodewar message %s: %w", messageID, err)
	}
	entries, err := deps.Nodewar.ListEntries(ctx, messageID)
	if err != nil {
		return RosterResult{}, fmt.Errorf("list nodewar entries %s: %w", messageID, err)
	}
	names, err := LoadNameResolver(ctx, deps.Overrides, msg.GuildID)
	if err != nil {
		return RosterResult{}, err
	}

	signed, waitlist := nodewar.Partition(entries)
	return RosterResult{
		Message:  msg,
		Signed:   rosterEntries(signed, names),
		Waitlist: rosterEntries(waitlist, names),
	}, nil
}

func rosterEntries(entries []nodewar.Entry, names NameResolver) []RosterEntry {
	out := make([]RosterEntry, len(entries))
	for i, e := range entries {
		out[i] = RosterEntry{UserID: e.UserID, Name: names.Resolve(e.UserID, e.DisplayName), Position: e.Position}
	}
	return out
}
