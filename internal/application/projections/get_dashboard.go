package projections

import (
	"context"
	"fmt"
	"time"

	messageStore "guildleague/internal/adapters/storage/message"
	nodewarStore "guildleague/internal/adapters/storage/nodewar"
	statsStore "guildleague/internal/adapters/storage/stats"
	"guildleague/internal/application/grouping"
	"guildleague/internal/domain/leagueconfig"
	"guildleague/internal/domain/nodewar"
	"guildleague/internal/domain/participation"
	"guildleague/internal/domain/stats"
)

// DashboardMessageLimit bounds how many recent posts the dashboard lists.
const DashboardMessageLimit = 200

// GetDashboardQuery carries input for the dashboard projection.
type GetDashboardQuery struct {
	GuildID string // empty shows every guild
}

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	Stats         StatsStore
	Configs       ConfigStore
	Messages      MessageStore
	Signups       SignupStore
	Nodewar       NodewarStore
	Participation ParticipationStore // optional: nil hides game counts
	Users         NameLookup         // optional: nil shows raw ids
	Guilds        NameLookup         // optional: nil shows raw ids
}

// PlayerStat is one counter row enriched for display.
type PlayerStat struct {
	UserID       string
	GuildID      string
	GuildName    string
	Name         string // override or custom name, else platform name
	PlatformName string
	Count        int
	LastSeen     time.Time
	Tier         string
	GamesPlayed  int
	HasGames     bool
}

// GuildConfigs lists one guild's league schedules.
type GuildConfigs struct {
	GuildID   string
	GuildName string
	Configs   []ConfigView
}

// ConfigView is one day's schedule.
type ConfigView struct {
	Day    string
	Ranges string
	Slots  int
}

// MessageGroup is one logical event: sibling posts sharing a guild and day.
type MessageGroup struct {
	GuildID   string
	GuildName string
	Day       string
	Messages  []MessageSummary
}

// MessageSummary is one posted signup message.
type MessageSummary struct {
	MessageID string
	ChannelID string
	TeamMode  string
	Signups   int
	Users     int
	CreatedAt time.Time
}

// NodewarSummary is one posted roster.
type NodewarSummary struct {
	MessageID string
	GuildName string
	Day       string
	MaxCap    int
	Signed    int
	Waitlist  int
}

// DashboardResult carries the output of the dashboard projection.
type DashboardResult struct {
	Stats        []PlayerStat
	TotalSignups int
	Configs      []GuildConfigs
	Groups       []MessageGroup
	Nodewars     []NodewarSummary
}

// QueryGetDashboard assembles the admin overview.
// PRE: deps stores are set; lookups are optional
// POST: Name lookup failures fall back to ids and never fail the query
func QueryGetDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps) (DashboardResult, error) {
	var result DashboardResult

	list, err := deps.Stats.List(ctx, statsStore.ListFilter{GuildID: query.GuildID})
	if err != nil {
		return DashboardResult{}, fmt.Errorf("list stats: %w", err)
	}
	overrides, err := deps.Stats.ListOverrides(ctx, query.GuildID)
	if err != nil {
		return DashboardResult{}, fmt.Errorf("list overrides: %w", err)
	}
	games := map[string]int{}
	if deps.Participation != nil {
		records, err := deps.Participation.List(ctx)
		if err != nil {
			return DashboardResult{}, fmt.Errorf("list game participation: %w", err)
		}
		games = participation.Index(records)
	}
	result.Stats = playerStats(ctx, list, overrides, games, deps.Users, deps.Guilds)
	result.TotalSignups = stats.Total(list)

	configs, err := deps.Configs.List(ctx, query.GuildID)
	if err != nil {
		return DashboardResult{}, fmt.Errorf("list configs: %w", err)
	}
	result.Configs = groupConfigs(ctx, configs, deps.Guilds)

	metas, err := deps.Messages.List(ctx, messageStore.ListFilter{GuildID: query.GuildID, Limit: DashboardMessageLimit})
	if err != nil {
		return DashboardResult{}, fmt.Errorf("list messages: %w", err)
	}
	groups := grouping.GroupMessages(metas)
	for _, g := range groups {
		view := MessageGroup{GuildID: g.GuildID, GuildName: lookupName(ctx, deps.Guilds, "guild", g.GuildID), Day: g.Day}
		for _, m := range g.Messages {
			entries, err := deps.Signups.ListByMessages(ctx, []string{m.MessageID})
			if err != nil {
				return DashboardResult{}, fmt.Errorf("list signups for %s: %w", m.MessageID, err)
			}
			users := map[string]bool{}
			for _, e := range entries {
				users[e.UserID] = true
			}
			view.Messages = append(view.Messages, MessageSummary{
				MessageID: m.MessageID,
				ChannelID: m.ChannelID,
				TeamMode:  m.TeamMode,
				Signups:   len(entries),
				Users:     len(users),
				CreatedAt: m.CreatedAt,
			})
		}
		result.Groups = append(result.Groups, view)
	}

	rosters, err := deps.Nodewar.ListMessages(ctx, nodewarStore.ListFilter{GuildID: query.GuildID, Limit: DashboardMessageLimit})
	if err != nil {
		return DashboardResult{}, fmt.Errorf("list nodewar messages: %w", err)
	}
	for _, msg := range rosters {
		entries, err := deps.Nodewar.ListEntries(ctx, msg.MessageID)
		if err != nil {
			return DashboardResult{}, fmt.Errorf("list nodewar entries %s: %w", msg.MessageID, err)
		}
		summary := NodewarSummary{
			MessageID: msg.MessageID,
			GuildName: lookupName(ctx, deps.Guilds, "guild", msg.GuildID),
			Day:       msg.Day,
			MaxCap:    msg.MaxCap,
		}
		for _, e := range entries {
			if e.Status == nodewar.StatusSigned {
				summary.Signed++
			} else {
				summary.Waitlist++
			}
		}
		result.Nodewars = append(result.Nodewars, summary)
	}

	return result, nil
}

func playerStats(ctx context.Context, list []stats.ParticipationStat, overrides []stats.NameOverride,
	games map[string]int, users, guilds NameLookup) []PlayerStat {
	byKey := make(map[string]string, len(overrides))
	for _, o := range overrides {
		byKey[o.GuildID+"/"+o.UserID] = o.DisplayName
	}

	out := make([]PlayerStat, 0, len(list))
	for _, s := range list {
		platform := lookupName(ctx, users, "user", s.UserID)
		name := byKey[s.GuildID+"/"+s.UserID]
		if name == "" {
			name = s.CustomName
		}
		view := PlayerStat{
			UserID:       s.UserID,
			GuildID:      s.GuildID,
			GuildName:    lookupName(ctx, guilds, "guild", s.GuildID),
			PlatformName: platform,
			Count:        s.Count,
			LastSeen:     s.LastSeen,
			Tier:         stats.Tier(s.Count),
		}
		if name != "" {
			view.GamesPlayed, view.HasGames = games[name]
		} else {
			name = platform
		}
		view.Name = name
		out = append(out, view)
	}
	return out
}

func groupConfigs(ctx context.Context, configs []leagueconfig.Config, guilds NameLookup) []GuildConfigs {
	var out []GuildConfigs
	for _, c := range configs {
		if len(out) == 0 || out[len(out)-1].GuildID != c.GuildID {
			out = append(out, GuildConfigs{GuildID: c.GuildID, GuildName: lookupName(ctx, guilds, "guild", c.GuildID)})
		}
		last := &out[len(out)-1]
		last.Configs = append(last.Configs, ConfigView{
			Day:    c.Day,
			Ranges: leagueconfig.FormatRanges(c.Ranges),
			Slots:  len(leagueconfig.GenerateSlots(c.Ranges)),
		})
	}
	return out
}
