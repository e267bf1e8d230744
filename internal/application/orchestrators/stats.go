package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"guildleague/internal/adapters/storage/roster"
	statsStore "guildleague/internal/adapters/storage/stats"
	"guildleague/internal/domain/stats"
)

// StatsDeps holds dependencies for counter maintenance.
type StatsDeps struct {
	Roster RosterRunner
}

// ResyncStatsResult reports how far the counters had drifted from the signup rows.
type ResyncStatsResult struct {
	Written int
	Drift   []stats.Drift
}

// ExecuteResyncStats rebuilds participation counters from signup rows.
// Signup rows are authoritative; counters are overwritten, custom names kept.
// An empty guildID resyncs every guild.
// POST: Every counter equals its recomputed tally
func ExecuteResyncStats(ctx context.Context, guildID string, deps StatsDeps) (ResyncStatsResult, error) {
	var result ResyncStatsResult
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		tallies, err := tx.Signups.Tally(ctx, guildID)
		if err != nil {
			return fmt.Errorf("tally signups: %w", err)
		}
		recomputed := make([]stats.ParticipationStat, len(tallies))
		for i, t := range tallies {
			recomputed[i] = stats.ParticipationStat{
				UserID:   t.UserID,
				GuildID:  t.GuildID,
				Count:    t.Count,
				LastSeen: t.LastSeen,
			}
		}
		stored, err := tx.Stats.List(ctx, statsStore.ListFilter{GuildID: guildID})
		if err != nil {
			return fmt.Errorf("list stats: %w", err)
		}

		writes, drift := stats.Reconcile(stored, recomputed)
		for _, s := range writes {
			if err := tx.Stats.Save(ctx, s); err != nil {
				return fmt.Errorf("save stat %s/%s: %w", s.GuildID, s.UserID, err)
			}
		}
		result = ResyncStatsResult{Written: len(writes), Drift: drift}
		return nil
	})
	if err != nil {
		return ResyncStatsResult{}, err
	}

	slog.Info("stats_event", "event", "resync", "guild_id", guildID,
		"written", result.Written, "drift", len(result.Drift))
	return result, nil
}

// AdjustStatsInput lowers counters of one guild by a per-user amount.
type AdjustStatsInput struct {
	GuildID    string
	Reductions map[string]int
}

// AdjustedStat is one counter before and after an adjustment.
type AdjustedStat struct {
	UserID string
	Before int
	After  int
}

// AdjustStatsResult lists applied adjustments and users without a counter.
type AdjustStatsResult struct {
	Adjusted []AdjustedStat
	Missing  []string
}

// ExecuteAdjustStats subtracts the given amounts, flooring at zero.
// PRE: GuildID is set; amounts are positive
// POST: Users are processed in id order
func ExecuteAdjustStats(ctx context.Context, input AdjustStatsInput, deps StatsDeps) (AdjustStatsResult, error) {
	if input.GuildID == "" {
		return AdjustStatsResult{}, &ValidationError{Field: "guild", Message: stats.ErrEmptyGuildID.Error()}
	}
	users := make([]string, 0, len(input.Reductions))
	for userID, amount := range input.Reductions {
		if amount <= 0 {
			return AdjustStatsResult{}, invalid("amount", "reduction for %s must be positive, got %d", userID, amount)
		}
		users = append(users, userID)
	}
	sort.Strings(users)

	var result AdjustStatsResult
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		result = AdjustStatsResult{}
		for _, userID := range users {
			current, err := tx.Stats.Get(ctx, input.GuildID, userID)
			if isNoRows(err) {
				result.Missing = append(result.Missing, userID)
				continue
			}
			if err != nil {
				return fmt.Errorf("load stat %s: %w", userID, err)
			}
			before := current.Count
			current.Count = stats.Reduce(current.Count, input.Reductions[userID])
			if err := tx.Stats.Save(ctx, current); err != nil {
				return fmt.Errorf("save stat %s: %w", userID, err)
			}
			result.Adjusted = append(result.Adjusted, AdjustedStat{UserID: userID, Before: before, After: current.Count})
		}
		return nil
	})
	if err != nil {
		return AdjustStatsResult{}, err
	}

	slog.Info("stats_event", "event", "adjusted", "guild_id", input.GuildID,
		"adjusted", len(result.Adjusted), "missing", len(result.Missing))
	return result, nil
}

// ExecuteResetStats deletes counters of one guild, or of every guild when guildID is empty.
// POST: Returns the number of counters removed
func ExecuteResetStats(ctx context.Context, guildID string, deps StatsDeps) (int64, error) {
	var removed int64
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		n, err := tx.Stats.DeleteAll(ctx, guildID)
		removed = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reset stats: %w", err)
	}
	slog.Warn("stats_event", "event", "reset", "guild_id", guildID, "removed", removed)
	return removed, nil
}
