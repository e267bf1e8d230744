package projections

import (
	"context"
	"fmt"
	"log/slog"

	"guildleague/internal/domain/stats"
)

// NameResolver applies the display-name precedence used by every renderer:
// override, then the name stored with the entry, then the raw user id.
type NameResolver struct {
	overrides map[string]string
}

// NewNameResolver builds a resolver from a guild's overrides.
func NewNameResolver(overrides []stats.NameOverride) NameResolver {
	m := make(map[string]string, len(overrides))
	for _, o := range overrides {
		m[o.UserID] = o.DisplayName
	}
	return NameResolver{overrides: m}
}

// LoadNameResolver reads the overrides of guildID.
// Overrides are per guild, so an unknown guild (empty id) gets none.
func LoadNameResolver(ctx context.Context, store OverrideStore, guildID string) (NameResolver, error) {
	if guildID == "" {
		return NewNameResolver(nil), nil
	}
	overrides, err := store.ListOverrides(ctx, guildID)
	if err != nil {
		return NameResolver{}, fmt.Errorf("list name overrides: %w", err)
	}
	return NewNameResolver(overrides), nil
}

// Resolve returns the display name for userID given the name stored with its entry.
func (r NameResolver) Resolve(userID, stored string) string {
	return stats.ResolveName(r.overrides, userID, stored)
}

// Override returns the user's override, if any.
func (r NameResolver) Override(userID string) (string, bool) {
	name, ok := r.overrides[userID]
	return name, ok && name != ""
}

// lookupName asks the platform for a name and falls back to the id.
// Lookup failures are cosmetic and only logged.
func lookupName(ctx context.Context, lookup NameLookup, kind, id string) string {
	if lookup == nil || id == "" {
		return id
	}
	name, err := lookup.Get(ctx, id)
	if err != nil || name == "" {
		if err != nil {
			slog.Debug("name_lookup_failed", "kind", kind, "id", id, "error", err.Error())
		}
		return id
	}
	return name
}
