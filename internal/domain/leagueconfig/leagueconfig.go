package leagueconfig

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Slot generation limits imposed by the chat platform's button layout.
const (
	SlotIntervalMinutes = 30
	ButtonsPerRow       = 5
	MaxRows             = 5
	MaxSlotsPerMessage  = ButtonsPerRow * MaxRows
)

const minutesPerDay = 24 * 60

var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Domain errors.
var (
	ErrEmptyGuildID = errors.New("guild id is required")
	ErrEmptyDay     = errors.New("day is required")
	ErrNoRanges     = errors.New("at least one time range is required")
)

// Range is one HH:mm-HH:mm window. End before Start wraps past midnight.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Config is the league schedule for one guild and day.
type Config struct {
	GuildID string
	Day     string
	Ranges  []Range
}

// Validate checks that the config identifies a guild and day and has ranges.
// PRE: Config struct is populated
// POST: Returns nil if valid, error otherwise
func (c Config) Validate() error {
	if strings.TrimSpace(c.GuildID) == "" {
		return ErrEmptyGuildID
	}
	if strings.TrimSpace(c.Day) == "" {
		return ErrEmptyDay
	}
	if len(c.Ranges) == 0 {
		return ErrNoRanges
	}
	return nil
}

// RangeError describes the first malformed part of a ranges string.
type RangeError struct {
	Part   string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range %q: %s", e.Part, e.Reason)
}

// ParseRanges parses "HH:mm-HH:mm, HH:mm-HH:mm".
// PRE: none
// POST: Returns ranges in input order, or a *RangeError for the first bad part
func ParseRanges(raw string) ([]Range, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoRanges
	}
	var ranges []Range
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		times := strings.Split(part, "-")
		if len(times) != 2 {
			return nil, &RangeError{Part: part, Reason: `use "HH:mm-HH:mm"`}
		}
		start := strings.TrimSpace(times[0])
		end := strings.TrimSpace(times[1])
		if !timePattern.MatchString(start) || !timePattern.MatchString(end) {
			return nil, &RangeError{Part: part, Reason: "use HH:mm (24h)"}
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges, nil
}

// FormatRanges renders ranges back into the input syntax.
func FormatRanges(ranges []Range) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.Start + "-" + r.End
	}
	return strings.Join(parts, ", ")
}

// GenerateSlots expands ranges into 30-minute slot labels.
// The end time is inclusive and overnight ranges wrap, so 22:00-01:00 yields 22:00 through 01:00.
// PRE: ranges came from ParseRanges
// POST: Returns zero-padded HH:mm labels in range order
func GenerateSlots(ranges []Range) []string {
	var slots []string
	for _, r := range ranges {
		current := toMinutes(r.Start)
		end := toMinutes(r.End)
		if end < current {
			end += minutesPerDay
		}
		for ; current <= end; current += SlotIntervalMinutes {
			slots = append(slots, formatMinutes(current%minutesPerDay))
		}
	}
	return slots
}

func toMinutes(s string) int {
	h, m, _ := strings.Cut(s, ":")
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	return hours*60 + minutes
}

func formatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
