// Package grouping resolves the sibling messages that form one logical event.
package grouping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"guildleague/internal/domain/signup"
)

// MessageStore is the metadata surface the resolver reads.
type MessageStore interface {
	Get(ctx context.Context, messageID string) (signup.MessageMeta, error)
	ListByGroup(ctx context.Context, guildID, day string) ([]signup.MessageMeta, error)
}

// ResolveGroup returns every message sharing messageID's guild and day.
// Messages without metadata, or without a guild or day, form a singleton group.
// PRE: messageID is non-empty
// POST: Result contains messageID exactly once
func ResolveGroup(ctx context.Context, store MessageStore, messageID string) ([]string, error) {
	meta, err := store.Get(ctx, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{messageID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve group for %s: %w", messageID, err)
	}
	if !meta.HasGroupKey() {
		return []string{messageID}, nil
	}

	siblings, err := store.ListByGroup(ctx, meta.GuildID, meta.Day)
	if err != nil {
		return nil, fmt.Errorf("list group %s/%s: %w", meta.GuildID, meta.Day, err)
	}
	ids := make([]string, 0, len(siblings)+1)
	found := false
	for _, m := range siblings {
		if m.MessageID == messageID {
			found = true
		}
		ids = append(ids, m.MessageID)
	}
	if !found {
		ids = append(ids, messageID)
	}
	return ids, nil
}

// Group is one logical event on the dashboard.
type Group struct {
	GuildID  string
	Day      string
	Messages []signup.MessageMeta
}

// GroupMessages partitions metadata rows by guild and day, keeping first-seen order.
// Rows without a group key each form their own group.
func GroupMessages(metas []signup.MessageMeta) []Group {
	type key struct{ guild, day string }
	index := make(map[key]int)
	var groups []Group
	for _, m := range metas {
		if !m.HasGroupKey() {
			groups = append(groups, Group{GuildID: m.GuildID, Day: m.Day, Messages: []signup.MessageMeta{m}})
			continue
		}
		k := key{m.GuildID, m.Day}
		if i, ok := index[k]; ok {
			groups[i].Messages = append(groups[i].Messages, m)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, Group{GuildID: m.GuildID, Day: m.Day, Messages: []signup.MessageMeta{m}})
	}
	return groups
}
