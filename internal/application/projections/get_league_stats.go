package projections

import (
	"context"
	"fmt"

	statsStore "guildleague/internal/adapters/storage/stats"
	"guildleague/internal/domain/stats"
)

// GetLeagueStatsDeps holds dependencies for the leaderboard projection.
type GetLeagueStatsDeps struct {
	Stats StatsStore
	Users NameLookup // optional
}

// LeaderboardRow is one ranked player.
type LeaderboardRow struct {
	Rank   int
	UserID string
	Name   string
	Count  int
	Tier   string
}

// LeagueStatsResult carries the leaderboard and guild totals.
type LeagueStatsResult struct {
	GuildID      string
	Top          []LeaderboardRow
	Players      int
	TotalSignups int
}

// QueryGetLeagueStats ranks a guild's players by participation.
// PRE: guildID is non-empty
// POST: Top holds at most stats.LeaderboardSize rows, highest count first
func QueryGetLeagueStats(ctx context.Context, guildID string, deps GetLeagueStatsDeps) (LeagueStatsResult, error) {
	list, err := deps.Stats.List(ctx, statsStore.ListFilter{GuildID: guildID})
	if err != nil {
		return LeagueStatsResult{}, fmt.Errorf("list stats: %w", err)
	}
	names, err := LoadNameResolver(ctx, deps.Stats, guildID)
	if err != nil {
		return LeagueStatsResult{}, err
	}

	result := LeagueStatsResult{GuildID: guildID, Players: len(list), TotalSignups: stats.Total(list)}
	for i, s := range list {
		if i == stats.LeaderboardSize {
			break
		}
		name, ok := names.Override(s.UserID)
		if !ok {
			name = s.CustomName
		}
		if name == "" {
			name = lookupName(ctx, deps.Users, "user", s.UserID)
		}
		result.Top = append(result.Top, LeaderboardRow{
			Rank:   i + 1,
			UserID: s.UserID,
			Name:   name,
			Count:  s.Count,
			Tier:   stats.Tier(s.Count),
		})
	}
	return result, nil
}

// QueryListStats returns raw counters for inspection, highest count first.
func QueryListStats(ctx context.Context, filter statsStore.ListFilter, store StatsStore) ([]stats.ParticipationStat, error) {
	list, err := store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	return list, nil
}
