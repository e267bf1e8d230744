package projections

import (
	"context"

	"guildleague/internal/adapters/chat"
	messageStore "guildleague/internal/adapters/storage/message"
	nodewarStore "guildleague/internal/adapters/storage/nodewar"
	statsStore "guildleague/internal/adapters/storage/stats"
	"guildleague/internal/domain/leagueconfig"
	"guildleague/internal/domain/nodewar"
	"guildleague/internal/domain/participation"
	"guildleague/internal/domain/signup"
	"guildleague/internal/domain/stats"
)

// SignupStore interface for slot signup queries.
type SignupStore interface {
	ListByMessages(ctx context.Context, messageIDs []string) ([]signup.Entry, error)
}

// MessageStore interface for signup message metadata queries.
type MessageStore interface {
	Get(ctx context.Context, messageID string) (signup.MessageMeta, error)
	ListByGroup(ctx context.Context, guildID, day string) ([]signup.MessageMeta, error)
	List(ctx context.Context, filter messageStore.ListFilter) ([]signup.MessageMeta, error)
}

// NodewarStore interface for capacity-bounded roster queries.
type NodewarStore interface {
	GetMessage(ctx context.Context, messageID string) (nodewar.Message, error)
	ListMessages(ctx context.Context, filter nodewarStore.ListFilter) ([]nodewar.Message, error)
	ListEntries(ctx context.Context, messageID string) ([]nodewar.Entry, error)
}

// OverrideStore interface for display-name overrides.
type OverrideStore interface {
	ListOverrides(ctx context.Context, guildID string) ([]stats.NameOverride, error)
}

// StatsStore interface for participation counter queries.
type StatsStore interface {
	OverrideStore
	List(ctx context.Context, filter statsStore.ListFilter) ([]stats.ParticipationStat, error)
}

// ConfigStore interface for league schedule queries.
type ConfigStore interface {
	List(ctx context.Context, guildID string) ([]leagueconfig.Config, error)
}

// ParticipationStore interface for imported game counts.
type ParticipationStore interface {
	List(ctx context.Context) ([]participation.GameParticipation, error)
}

// SlotLayoutSource reads the declared controls of a posted message.
// chat.Platform satisfies it.
type SlotLayoutSource interface {
	Layout(ctx context.Context, channelID, messageID string) (chat.Layout, error)
}

// NameLookup resolves a platform id to a human name. namecache.Cache satisfies it.
type NameLookup interface {
	Get(ctx context.Context, key string) (string, error)
}
