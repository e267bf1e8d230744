package audit

import (
	"errors"
	"strings"
	"time"
)

// Category groups events by what they touched.
type Category string

const (
	CategoryAuth   Category = "auth"
	CategoryRoster Category = "roster"
	CategoryStats  Category = "stats"
	CategoryRender Category = "render"
)

// Action names what an admin did.
type Action string

const (
	ActionLogin       Action = "login"
	ActionLoginFailed Action = "login_failed"
	ActionLogout      Action = "logout"
	ActionRename      Action = "rename"
	ActionSetTeam     Action = "set_team"
	ActionRemove      Action = "remove"
	ActionDelete      Action = "delete"
	ActionUpdateCap   Action = "update_cap"
	ActionRemind      Action = "remind"
	ActionResync      Action = "resync"
	ActionImport      Action = "import"
	ActionRetry       Action = "retry"
	ActionAbandon     Action = "abandon"
)

// MaxDetailLength bounds the free-text detail of an event.
const MaxDetailLength = 500

// Domain errors.
var (
	ErrEmptyID       = errors.New("event id is required")
	ErrEmptyCategory = errors.New("category is required")
	ErrEmptyAction   = errors.New("action is required")
)

// Event is one dashboard action, kept for later review.
type Event struct {
	ID        string
	At        time.Time
	Category  Category
	Action    Action
	ActorID   string
	ActorName string
	Target    string // message, user, entry or guild id the action applied to
	Detail    string
	IPAddress string
}

// Validate checks the event identity and trims an over-long detail.
// PRE: Event struct is populated
// POST: Returns nil if valid; Detail is at most MaxDetailLength runes
func (e *Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if e.Category == "" {
		return ErrEmptyCategory
	}
	if e.Action == "" {
		return ErrEmptyAction
	}
	if r := []rune(e.Detail); len(r) > MaxDetailLength {
		e.Detail = string(r[:MaxDetailLength])
	}
	return nil
}
