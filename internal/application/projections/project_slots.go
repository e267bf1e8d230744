package projections

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/domain/command"
	"guildleague/internal/domain/signup"
)

// ProjectSlotsQuery carries input for the slot projection.
// ChannelID and GuildID are hints used when the message has no metadata.
type ProjectSlotsQuery struct {
	MessageID string
	ChannelID string
	GuildID   string
}

// ProjectSlotsDeps holds dependencies for the slot projection.
type ProjectSlotsDeps struct {
	Signups   SignupStore
	Messages  MessageStore
	Overrides OverrideStore
	Layout    SlotLayoutSource // optional: nil skips the platform fallback
}

// SlotEntry is one signed-up user as displayed.
type SlotEntry struct {
	UserID string
	Name   string
	Team   string
}

// SlotView is one slot with its users in join order.
type SlotView struct {
	SlotTime string
	Entries  []SlotEntry
}

// Names returns the display names of the slot's users.
func (s SlotView) Names() []string {
	names := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		names[i] = e.Name
	}
	return names
}

// SlotsResult is the render-ready state of one signup message.
type SlotsResult struct {
	MessageID string
	GuildID   string
	ChannelID string
	Day       string
	TeamMode  string
	Slots     []SlotView
}

// QueryProjectSlots groups a message's entries by slot in declared order.
// Slot order comes from the stored metadata, then the platform's button layout,
// then lexical order of the slots that have entries.
// PRE: MessageID is non-empty
// POST: Every declared slot appears, empty ones included; entries keep join order
func QueryProjectSlots(ctx context.Context, query ProjectSlotsQuery, deps ProjectSlotsDeps) (SlotsResult, error) {
	result := SlotsResult{MessageID: query.MessageID, ChannelID: query.ChannelID, GuildID: query.GuildID}

	var declared []string
	meta, err := deps.Messages.Get(ctx, query.MessageID)
	switch {
	case err == nil:
		if meta.GuildID != "" {
			result.GuildID = meta.GuildID
		}
		result.Day = meta.Day
		result.TeamMode = meta.TeamMode
		if meta.ChannelID != "" {
			result.ChannelID = meta.ChannelID
		}
		declared = meta.Slots
	case isNoRows(err):
	default:
		return SlotsResult{}, fmt.Errorf("load message meta %s: %w", query.MessageID, err)
	}

	if len(declared) == 0 && deps.Layout != nil && result.ChannelID != "" {
		layout, err := deps.Layout.Layout(ctx, result.ChannelID, query.MessageID)
		if err != nil {
			slog.Warn("slot_layout_unavailable", "message_id", query.MessageID, "error", err.Error())
		} else {
			mode, slots := layoutSlots(layout)
			declared = slots
			if result.TeamMode == "" {
				result.TeamMode = mode
			}
			if result.Day == "" {
				result.Day = dayFromTitle(layout.Title)
			}
		}
	}

	entries, err := deps.Signups.ListByMessages(ctx, []string{query.MessageID})
	if err != nil {
		return SlotsResult{}, fmt.Errorf("list signups for %s: %w", query.MessageID, err)
	}
	names, err := LoadNameResolver(ctx, deps.Overrides, result.GuildID)
	if err != nil {
		return SlotsResult{}, err
	}

	result.Slots = groupBySlot(entries, declared, names)
	return result, nil
}

// layoutSlots recovers team mode and slot order from a posted message's button ids.
func layoutSlots(layout chat.Layout) (string, []string) {
	mode := ""
	var slots []string
	for _, id := range layout.ButtonIDs {
		toggle, ok := command.Parse(id).(command.SlotToggle)
		if !ok {
			continue
		}
		if mode == "" {
			mode = toggle.TeamMode
		}
		slots = append(slots, toggle.SlotTime)
	}
	return mode, slots
}

// signupTitlePrefix is how posted signup embeds are titled, followed by the day.
const signupTitlePrefix = "Guild League Signups - "

func dayFromTitle(title string) string {
	day, ok := strings.CutPrefix(title, signupTitlePrefix)
	if !ok {
		return ""
	}
	return strings.TrimSpace(day)
}

// groupBySlot buckets entries under declared slots, appending undeclared slots lexically.
func groupBySlot(entries []signup.Entry, declared []string, names NameResolver) []SlotView {
	index := make(map[string]int)
	var views []SlotView
	for _, slot := range declared {
		if _, ok := index[slot]; ok {
			continue
		}
		index[slot] = len(views)
		views = append(views, SlotView{SlotTime: slot})
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
		index[slot] = len(views)
		views = append(views, SlotView{SlotTime: slot})
	}

	for _, e := range entries {
		i := index[e.SlotTime]
		views[i].Entries = append(views[i].Entries, SlotEntry{
			UserID: e.UserID,
			Name:   names.Resolve(e.UserID, e.DisplayName),
			Team:   e.Team,
		})
	}
	return views
}
