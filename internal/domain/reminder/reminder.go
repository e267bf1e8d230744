// Package reminder plans team reminder messages for signed-up slots.
package reminder

import (
	"strings"
	"unicode/utf8"

	"guildleague/internal/domain/signup"
)

// Delivery limits. Mention lists stay under MaxMentionChars so the header fits under TransportLimit.
const (
	TeamBThreshold  = 8
	MaxMentionChars = 1900
	TransportLimit  = 2000
	maxHeaderChars  = TransportLimit - MaxMentionChars - 1
)

// Bucket holds the team-tagged users of one slot across a set of messages.
type Bucket struct {
	SlotTime string
	TeamA    []string
	TeamB    []string
}

// Eligible reports which teams may be notified.
// Team A is eligible whenever non-empty; Team B only at TeamBThreshold or more.
func (b Bucket) Eligible() (teamA, teamB bool) {
	return len(b.TeamA) > 0, len(b.TeamB) >= TeamBThreshold
}

// BuildBuckets groups team-tagged entries by slot, de-duplicating users per team.
// Untagged entries are ignored. Slots keep the order of first appearance.
// An empty slotFilter keeps every slot.
// PRE: none
// POST: Returns buckets with at least one tagged user
func BuildBuckets(entries []signup.Entry, slotFilter string) []Bucket {
	index := make(map[string]int)
	seen := make(map[string]bool)
	var buckets []Bucket

	for _, e := range entries {
		if !signup.IsTeamMode(e.Team) {
			continue
		}
		if slotFilter != "" && e.SlotTime != slotFilter {
			continue
		}
		key := e.SlotTime + "\x00" + e.Team + "\x00" + e.UserID
		if seen[key] {
			continue
		}
		seen[key] = true

		i, ok := index[e.SlotTime]
		if !ok {
			i = len(buckets)
			index[e.SlotTime] = i
			buckets = append(buckets, Bucket{SlotTime: e.SlotTime})
		}
		if e.Team == signup.TeamA {
			buckets[i].TeamA = append(buckets[i].TeamA, e.UserID)
		} else {
			buckets[i].TeamB = append(buckets[i].TeamB, e.UserID)
		}
	}
	return buckets
}

// Message is one planned chat message.
type Message struct {
	SlotTime   string
	Teams      []string // teams whose members are mentioned
	Body       string
	Recipients []string
}

// Mention formats a user id as a chat mention.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// Plan builds the messages for one bucket.
// Both teams go in one combined message when their mention lists fit together;
// otherwise each eligible team is sent separately in chunks.
// PRE: note may be empty
// POST: every Body is at most TransportLimit characters; recipients appear exactly once per team
func Plan(b Bucket, note string) []Message {
	sendA, sendB := b.Eligible()
	if !sendA && !sendB {
		return nil
	}

	header := headerLine(b.SlotTime, note)

	if sendA && sendB {
		lines := teamLine(signup.TeamA, b.TeamA) + "\n" + teamLine(signup.TeamB, b.TeamB)
		if utf8.RuneCountInString(lines) <= MaxMentionChars {
			recipients := append(append([]string{}, b.TeamA...), b.TeamB...)
			return []Message{{
				SlotTime:   b.SlotTime,
				Teams:      []string{signup.TeamA, signup.TeamB},
				Body:       header + "\n" + lines,
				Recipients: recipients,
			}}
		}
	}

	var out []Message
	if sendA {
		out = append(out, teamMessages(b.SlotTime, signup.TeamA, b.TeamA, header)...)
	}
	if sendB {
		out = append(out, teamMessages(b.SlotTime, signup.TeamB, b.TeamB, header)...)
	}
	return out
}

func teamMessages(slot, team string, users []string, header string) []Message {
	label := teamLabel(team)
	var out []Message
	for _, chunk := range ChunkMentions(users, MaxMentionChars-utf8.RuneCountInString(label)-1) {
		mentions := make([]string, len(chunk))
		for i, id := range chunk {
			mentions[i] = Mention(id)
		}
		out = append(out, Message{
			SlotTime:   slot,
			Teams:      []string{team},
			Body:       header + "\n" + label + " " + strings.Join(mentions, " "),
			Recipients: chunk,
		})
	}
	return out
}

// ChunkMentions splits users into groups whose space-joined mentions fit within limit characters.
// A single mention longer than limit is placed alone.
// PRE: limit > 0
// POST: concatenating the chunks yields users in order
func ChunkMentions(users []string, limit int) [][]string {
	var chunks [][]string
	var current []string
	size := 0
	for _, id := range users {
		n := utf8.RuneCountInString(Mention(id))
		extra := n
		if len(current) > 0 {
			extra++
		}
		if len(current) > 0 && size+extra > limit {
			chunks = append(chunks, current)
			current = nil
			size = 0
			extra = n
		}
		current = append(current, id)
		size += extra
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

func teamLabel(team string) string {
	if team == signup.TeamB {
		return "🟩 Team B:"
	}
	return "🟥 Team A:"
}

func teamLine(team string, users []string) string {
	mentions := make([]string, len(users))
	for i, id := range users {
		mentions[i] = Mention(id)
	}
	return teamLabel(team) + " " + strings.Join(mentions, " ")
}

func headerLine(slot, note string) string {
	header := "⏰ **" + slot + "**"
	if note = strings.TrimSpace(note); note != "" {
		header += " " + note
	}
	if utf8.RuneCountInString(header) > maxHeaderChars {
		header = string([]rune(header)[:maxHeaderChars])
	}
	return header
}

// Absentees returns members whose current voice channel differs from expected.
// current maps user id to voice channel id; missing users are absent.
func Absentees(members []string, expected string, current map[string]string) []string {
	var out []string
	for _, id := range members {
		if current[id] != expected {
			out = append(out, id)
		}
	}
	return out
}
