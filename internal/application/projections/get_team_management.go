package projections

import (
	"context"
	"fmt"
	"sort"

	"guildleague/internal/application/grouping"
	"guildleague/internal/domain/signup"
)

// GetTeamManagementDeps holds dependencies for the team management projection.
type GetTeamManagementDeps struct {
	Signups   SignupStore
	Messages  MessageStore
	Overrides OverrideStore
	Users     NameLookup // optional
}

// TeamEntry is one signup row on the team management page.
type TeamEntry struct {
	MessageID    string
	UserID       string
	SlotTime     string
	Name         string
	CustomName   string
	PlatformName string
	Team         string
}

// TeamSlot lists a slot's entries across the group, in join order.
type TeamSlot struct {
	SlotTime string
	Entries  []TeamEntry
	TeamA    int
	TeamB    int
}

// TeamManagementResult carries the group view of one logical event.
type TeamManagementResult struct {
	MessageID string
	GuildID   string
	Day       string
	Messages  []signup.MessageMeta
	Slots     []TeamSlot
}

// QueryGetTeamManagement lists every entry of the message's group by slot.
// Slot order follows the declared slots of each message in group order.
// PRE: messageID is non-empty
// POST: Messages without metadata form a singleton group
func QueryGetTeamManagement(ctx context.Context, messageID string, deps GetTeamManagementDeps) (TeamManagementResult, error) {
	result := TeamManagementResult{MessageID: messageID}

	group, err := grouping.ResolveGroup(ctx, deps.Messages, messageID)
	if err != nil {
		return TeamManagementResult{}, err
	}
	var declared []string
	for _, id := range group {
		meta, err := deps.Messages.Get(ctx, id)
		if isNoRows(err) {
			result.Messages = append(result.Messages, signup.MessageMeta{MessageID: id})
			continue
		}
		if err != nil {
			return TeamManagementResult{}, fmt.Errorf("load message meta %s: %w", id, err)
		}
		if id == messageID {
			result.GuildID, result.Day = meta.GuildID, meta.Day
		}
		result.Messages = append(result.Messages, meta)
		declared = append(declared, meta.Slots...)
	}

	entries, err := deps.Signups.ListByMessages(ctx, group)
	if err != nil {
		return TeamManagementResult{}, fmt.Errorf("list group signups: %w", err)
	}
	names, err := LoadNameResolver(ctx, deps.Overrides, result.GuildID)
	if err != nil {
		return TeamManagementResult{}, err
	}

	index := make(map[string]int)
	for _, slot := range declared {
		if _, ok := index[slot]; !ok {
			index[slot] = len(result.Slots)
			result.Slots = append(result.Slots, TeamSlot{SlotTime: slot})
		}
	}
	var extra []string
	for _, e := range entries {
		if _, ok := index[e.SlotTime]; !ok {
			index[e.SlotTime] = -1
			extra = append(extra, e.SlotTime)
		}
	}
	sort.Strings(extra)
	for _, slot := range extra {
		index[slot] = len(result.Slots)
		result.Slots = append(result.Slots, TeamSlot{SlotTime: slot})
	}

	for _, e := range entries {
		custom, _ := names.Override(e.UserID)
		slot := &result.Slots[index[e.SlotTime]]
		slot.Entries = append(slot.Entries, TeamEntry{
			MessageID:    e.MessageID,
			UserID:       e.UserID,
			SlotTime:     e.SlotTime,
			Name:         names.Resolve(e.UserID, e.DisplayName),
			CustomName:   custom,
			PlatformName: lookupName(ctx, deps.Users, "user", e.UserID),
			Team:         e.Team,
		})
		switch e.Team {
		case signup.TeamA:
			slot.TeamA++
		case signup.TeamB:
			slot.TeamB++
		}
	}
	return result, nil
}
