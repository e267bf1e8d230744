package stats

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxDisplayNameLength caps custom display names, counted in runes.
const MaxDisplayNameLength = 20

// LeaderboardSize is how many players the league stats view lists.
const LeaderboardSize = 15

// Domain errors.
var (
	ErrEmptyUserID  = errors.New("user id is required")
	ErrEmptyGuildID = errors.New("guild id is required")
)

// ParticipationStat counts slot signups per user and guild.
// It is a cache over signup rows and can be rebuilt by a resync.
type ParticipationStat struct {
	UserID     string
	GuildID    string
	Count      int
	LastSeen   time.Time
	CustomName string
}

// Validate checks the stat identity.
// PRE: ParticipationStat struct is populated
// POST: Returns nil if valid, error otherwise
func (s ParticipationStat) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(s.GuildID) == "" {
		return ErrEmptyGuildID
	}
	return nil
}

// NameOverride substitutes a display name for one user in one guild.
type NameOverride struct {
	UserID      string
	GuildID     string
	DisplayName string
}

// NormalizeDisplayName trims and truncates a requested name.
// An empty result means the override should be removed.
// PRE: none
// POST: Returns at most MaxDisplayNameLength runes
func NormalizeDisplayName(raw string) string {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) <= MaxDisplayNameLength {
		return name
	}
	return strings.TrimSpace(string([]rune(name)[:MaxDisplayNameLength]))
}

// Decrement returns count-1 floored at zero.
func Decrement(count int) int {
	if count <= 0 {
		return 0
	}
	return count - 1
}

// Reduce returns count-amount floored at zero.
func Reduce(count, amount int) int {
	if amount >= count {
		return 0
	}
	return count - amount
}

// Tier returns the leaderboard indicator for a participation count.
func Tier(count int) string {
	switch {
	case count >= 50:
		return "🟡"
	case count >= 30:
		return "🟠"
	case count >= 15:
		return "🔵"
	case count >= 5:
		return "🟢"
	default:
		return "⚪"
	}
}

// Total sums the counts of the given stats.
func Total(list []ParticipationStat) int {
	total := 0
	for _, s := range list {
		total += s.Count
	}
	return total
}
