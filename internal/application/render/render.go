// Package render turns projections into chat messages: embeds plus buttons.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/application/projections"
	"guildleague/internal/domain/command"
	"guildleague/internal/domain/leagueconfig"
	"guildleague/internal/domain/signup"
)

// Embed colors.
const (
	ColorSignup  = 0x0099FF
	ColorNodewar = 0xE74C3C
	ColorEmpty   = 0x2F3136
)

const signupDescription = "Click the buttons below to sign up for specific time slots.\nTimes are in server time (or configured timezone)."

// rosterNameWidth is the fixed column width of roster names.
const rosterNameWidth = 18

// leaderNameWidth is the fixed column width of leaderboard names.
const leaderNameWidth = 14

// SignupMessage renders a time-slot signup post with one button per slot.
// PRE: len(view.Slots) <= leagueconfig.MaxSlotsPerMessage
// POST: Buttons are laid out leagueconfig.ButtonsPerRow per row in slot order
func SignupMessage(view projections.SlotsResult) chat.Message {
	return chat.Message{
		Embeds: []chat.Embed{SignupEmbed(view)},
		Rows:   SlotButtons(view.TeamMode, slotTimes(view.Slots)),
	}
}

// SignupEmbed renders the slot fields of a signup post.
func SignupEmbed(view projections.SlotsResult) chat.Embed {
	title := "Guild League Signups"
	if view.Day != "" {
		title += " - " + view.Day
	}
	prefix := signup.FieldPrefix(view.TeamMode)
	embed := chat.Embed{Title: title, Description: signupDescription, Color: ColorSignup}
	for _, slot := range view.Slots {
		value := "-"
		if names := slot.Names(); len(names) > 0 {
			value = strings.Join(names, ", ")
		}
		embed.Fields = append(embed.Fields, chat.Field{
			Name:   fmt.Sprintf("%s %s (%d)", prefix, slot.SlotTime, len(slot.Entries)),
			Value:  value,
			Inline: true,
		})
	}
	return embed
}

// SlotButtons lays out one Primary button per slot, dropping anything past the platform limit.
func SlotButtons(teamMode string, slots []string) [][]chat.Button {
	if len(slots) > leagueconfig.MaxSlotsPerMessage {
		slots = slots[:leagueconfig.MaxSlotsPerMessage]
	}
	var rows [][]chat.Button
	for i, slot := range slots {
		if i%leagueconfig.ButtonsPerRow == 0 {
			rows = append(rows, nil)
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], chat.Button{
			CustomID: command.SlotButtonID(teamMode, slot),
			Label:    slot,
			Style:    chat.StylePrimary,
		})
	}
	return rows
}

// EmptySignup is the initial state of a freshly posted signup message.
func EmptySignup(day, teamMode string, slots []string) projections.SlotsResult {
	view := projections.SlotsResult{Day: day, TeamMode: teamMode}
	for _, slot := range slots {
		view.Slots = append(view.Slots, projections.SlotView{SlotTime: slot})
	}
	return view
}

func slotTimes(slots []projections.SlotView) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.SlotTime
	}
	return out
}

// NodewarMessage renders a capacity-bounded roster with its Sign Up and Leave buttons.
func NodewarMessage(view projections.RosterResult, now time.Time) chat.Message {
	return chat.Message{
		Embeds: []chat.Embed{NodewarEmbed(view, now)},
		Rows:   [][]chat.Button{NodewarButtons()},
	}
}

// NodewarEmbed renders signed and waitlisted players as numbered fixed-width lists.
// The waitlist field only appears when someone is waiting.
func NodewarEmbed(view projections.RosterResult, now time.Time) chat.Embed {
	embed := chat.Embed{
		Title:     "⚔️ Node War — " + view.Message.Day,
		Color:     ColorNodewar,
		Timestamp: now,
	}

	signed := "```\nNo signups yet\n```"
	if len(view.Signed) > 0 {
		signed = rosterBlock(view.Signed)
	}
	embed.Fields = append(embed.Fields, chat.Field{
		Name:  fmt.Sprintf("✅ Signed Up (%d/%d)", len(view.Signed), view.Message.MaxCap),
		Value: signed,
	})
	if len(view.Waitlist) > 0 {
		embed.Fields = append(embed.Fields, chat.Field{
			Name:  fmt.Sprintf("⏳ Waiting List (%d)", len(view.Waitlist)),
			Value: rosterBlock(view.Waitlist),
		})
	}

	switch left := view.Remaining(); left {
	case 0:
		embed.Footer = "Roster full — new signups go to waitlist"
	case 1:
		embed.Footer = "1 spot remaining"
	default:
		embed.Footer = fmt.Sprintf("%d spots remaining", left)
	}
	return embed
}

// NodewarButtons returns the fixed join and leave controls.
func NodewarButtons() []chat.Button {
	return []chat.Button{
		{CustomID: command.NodewarJoinID, Label: "Sign Up", Emoji: "✅", Style: chat.StyleSuccess},
		{CustomID: command.NodewarLeaveID, Label: "Leave", Emoji: "❌", Style: chat.StyleDanger},
	}
}

func rosterBlock(entries []projections.RosterEntry) string {
	var b strings.Builder
	b.WriteString("```ansi\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, padRight(truncate(e.Name, rosterNameWidth), rosterNameWidth))
	}
	b.WriteString("```")
	return b.String()
}

// LeagueStatsEmbed renders the participation leaderboard.
func LeagueStatsEmbed(view projections.LeagueStatsResult, now time.Time) chat.Embed {
	if view.Players == 0 {
		return chat.Embed{
			Title:       "Guild League Participation",
			Description: "No stats recorded yet.",
			Color:       ColorEmpty,
		}
	}

	var b strings.Builder
	b.WriteString("```ansi\n")
	for _, row := range view.Top {
		fmt.Fprintf(&b, "%s %4d  %s\n", padRight(truncate(row.Name, leaderNameWidth), leaderNameWidth), row.Count, row.Tier)
	}
	b.WriteString("```")
	b.WriteString("\n**Tier Legend:**\n")
	b.WriteString("🟡 50+ | 🟠 30+ | 🔵 15+ | 🟢 5+ | ⚪ <5")

	return chat.Embed{
		Title:       fmt.Sprintf("Guild League (%d) | Total: %d", view.Players, view.TotalSignups),
		Description: b.String(),
		Color:       ColorNodewar,
		Footer:      "Signup participation leaderboard",
		Timestamp:   now,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func padRight(s string, n int) string {
	if w := utf8.RuneCountInString(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
