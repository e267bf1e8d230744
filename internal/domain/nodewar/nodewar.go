package nodewar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry status values.
const (
	StatusSigned   = "signed"
	StatusWaitlist = "waitlist"
)

// Capacity bounds for a roster.
const (
	DefaultCap = 100
	MinCap     = 1
	MaxCap     = 200
)

// Domain errors.
var (
	ErrEmptyMessageID = errors.New("message id is required")
	ErrEmptyUserID    = errors.New("user id is required")
	ErrInvalidStatus  = errors.New("status must be signed or waitlist")
)

// CapError reports a capacity outside [MinCap, MaxCap].
type CapError struct {
	Cap int
}

func (e *CapError) Error() string {
	return fmt.Sprintf("cap %d out of range %d..%d", e.Cap, MinCap, MaxCap)
}

// ValidateCap rejects capacities outside the allowed range.
func ValidateCap(maxCap int) error {
	if maxCap < MinCap || maxCap > MaxCap {
		return &CapError{Cap: maxCap}
	}
	return nil
}

// Message is a posted capacity-bounded roster.
type Message struct {
	MessageID string
	GuildID   string
	ChannelID string
	Day       string
	MaxCap    int
	CreatedAt time.Time
}

// Validate checks the message identity and capacity.
// PRE: Message struct is populated
// POST: Returns nil if valid, error otherwise
func (m Message) Validate() error {
	if strings.TrimSpace(m.MessageID) == "" {
		return ErrEmptyMessageID
	}
	return ValidateCap(m.MaxCap)
}

// Entry is one user's place on a roster. Positions follow join order; a new entry always takes the highest.
type Entry struct {
	MessageID   string
	UserID      string
	DisplayName string
	Position    int
	Status      string
	SignedAt    time.Time
}

// Validate checks that the entry has an identity and a known status.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e Entry) Validate() error {
	if strings.TrimSpace(e.MessageID) == "" {
		return ErrEmptyMessageID
	}
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if e.Status != StatusSigned && e.Status != StatusWaitlist {
		return ErrInvalidStatus
	}
	return nil
}

// SortByPosition orders entries by ascending position in place.
func SortByPosition(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})
}

// NextPosition returns one past the highest position, or 1 for an empty roster.
func NextPosition(entries []Entry) int {
	highest := 0
	for _, e := range entries {
		if e.Position > highest {
			highest = e.Position
		}
	}
	return highest + 1
}

// CountSigned returns the number of signed entries.
func CountSigned(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Status == StatusSigned {
			n++
		}
	}
	return n
}

// JoinStatus decides the status of a new entry given the current roster.
// INVARIANT: the result never pushes CountSigned above maxCap
func JoinStatus(entries []Entry, maxCap int) string {
	if CountSigned(entries) < maxCap {
		return StatusSigned
	}
	return StatusWaitlist
}

// Find returns the entry for userID, if present.
func Find(entries []Entry, userID string) (Entry, bool) {
	for _, e := range entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return Entry{}, false
}

// PromotionAfterLeave picks the waitlisted entry to promote once removed leaves.
// Only a signed departure frees a spot, and at most one entry is promoted.
// PRE: entries no longer contains removed
// POST: Returns the lowest-position waitlist entry with Status set to signed
func PromotionAfterLeave(entries []Entry, removed Entry, maxCap int) (Entry, bool) {
	if removed.Status != StatusSigned || CountSigned(entries) >= maxCap {
		return Entry{}, false
	}
	var best Entry
	found := false
	for _, e := range entries {
		if e.Status != StatusWaitlist {
			continue
		}
		if !found || e.Position < best.Position {
			best = e
			found = true
		}
	}
	if !found {
		return Entry{}, false
	}
	best.Status = StatusSigned
	return best, true
}

// Repartition is the outcome of applying a new cap to a roster.
type Repartition struct {
	Changed  []Entry // entries whose status flipped, with the new status
	Demoted  int
	Promoted int
}

// ApplyCap assigns signed to the first maxCap entries by position and waitlist to the rest.
// PRE: maxCap passed ValidateCap
// POST: Changed lists only entries whose status differs from before
func ApplyCap(entries []Entry, maxCap int) Repartition {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	SortByPosition(ordered)

	var result Repartition
	for i, e := range ordered {
		want := StatusWaitlist
		if i < maxCap {
			want = StatusSigned
		}
		if e.Status == want {
			continue
		}
		if want == StatusSigned {
			result.Promoted++
		} else {
			result.Demoted++
		}
		e.Status = want
		result.Changed = append(result.Changed, e)
	}
	return result
}

// Partition splits entries into signed and waitlist, each ordered by position.
func Partition(entries []Entry) (signed, waitlist []Entry) {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	SortByPosition(ordered)
	for _, e := range ordered {
		if e.Status == StatusSigned {
			signed = append(signed, e)
		} else {
			waitlist = append(waitlist, e)
		}
	}
	return signed, waitlist
}
