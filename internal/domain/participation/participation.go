// Package participation counts games played per character from an exported game log.
package participation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// RecordKind is the first field of a counted log line.
const RecordKind = "PLAYER"

// DefaultScope is the guild label whose rows are counted.
const DefaultScope = "in-scope guild"

// maxLineBytes bounds a single log line.
const maxLineBytes = 1 << 20

// ErrEmptyScope is returned when parsing without a scope.
var ErrEmptyScope = errors.New("scope is required")

// GameParticipation is games played per character name.
// It joins to players by custom display name, not user id.
type GameParticipation struct {
	CharacterName string
	GamesPlayed   int
	LastUpdated   time.Time
}

// ParseResult summarises one log parse.
type ParseResult struct {
	Records   []GameParticipation // sorted by games played desc, then name
	Lines     int
	Counted   int
	Malformed int
}

// ParseLog counts PLAYER|<scope>|<character>|... lines for scope.
// Other record kinds and other scopes are ignored; PLAYER lines missing a name are malformed.
// PRE: r is readable, scope is non-empty
// POST: Records holds one row per character with LastUpdated = now
func ParseLog(r io.Reader, scope string, now time.Time) (ParseResult, error) {
	if strings.TrimSpace(scope) == "" {
		return ParseResult{}, ErrEmptyScope
	}

	counts := make(map[string]int)
	var result ParseResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result.Lines++
		fields := strings.Split(line, "|")
		if fields[0] != RecordKind {
			continue
		}
		if len(fields) < 3 || strings.TrimSpace(fields[2]) == "" {
			result.Malformed++
			continue
		}
		if strings.TrimSpace(fields[1]) != scope {
			continue
		}
		counts[strings.TrimSpace(fields[2])]++
		result.Counted++
	}
	if err := scanner.Err(); err != nil {
		return ParseResult{}, fmt.Errorf("read game log: %w", err)
	}

	for name, n := range counts {
		result.Records = append(result.Records, GameParticipation{
			CharacterName: name,
			GamesPlayed:   n,
			LastUpdated:   now,
		})
	}
	sort.Slice(result.Records, func(i, j int) bool {
		a, b := result.Records[i], result.Records[j]
		if a.GamesPlayed != b.GamesPlayed {
			return a.GamesPlayed > b.GamesPlayed
		}
		return a.CharacterName < b.CharacterName
	})
	return result, nil
}

// Index maps character names to games played, for joining against display names.
func Index(records []GameParticipation) map[string]int {
	idx := make(map[string]int, len(records))
	for _, r := range records {
		idx[r.CharacterName] = r.GamesPlayed
	}
	return idx
}
