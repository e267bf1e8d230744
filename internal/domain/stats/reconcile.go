package stats

import "sort"

// Drift is a counter whose stored value disagrees with the recomputed one.
type Drift struct {
	UserID     string
	GuildID    string
	Stored     int
	Recomputed int
}

type statKey struct{ guild, user string }

// Reconcile compares stored counters with counts recomputed from signup rows.
// Signup rows are authoritative: a stored counter with no recomputed row is reset to zero.
// Custom names on stored rows are preserved.
// PRE: both lists are scoped to the same guilds
// POST: Returns the rows to write and their drift, ordered by guild then user
func Reconcile(stored, recomputed []ParticipationStat) ([]ParticipationStat, []Drift) {
	current := make(map[statKey]ParticipationStat, len(stored))
	for _, s := range stored {
		current[statKey{s.GuildID, s.UserID}] = s
	}

	var writes []ParticipationStat
	var drift []Drift
	seen := make(map[statKey]bool, len(recomputed))
	for _, r := range recomputed {
		k := statKey{r.GuildID, r.UserID}
		seen[k] = true
		old, ok := current[k]
		if ok && old.Count == r.Count {
			continue
		}
		row := r
		if ok {
			row.CustomName = old.CustomName
			if row.LastSeen.Before(old.LastSeen) {
				row.LastSeen = old.LastSeen
			}
		}
		writes = append(writes, row)
		drift = append(drift, Drift{UserID: r.UserID, GuildID: r.GuildID, Stored: old.Count, Recomputed: r.Count})
	}
	for k, old := range current {
		if seen[k] || old.Count == 0 {
			continue
		}
		row := old
		row.Count = 0
		writes = append(writes, row)
		drift = append(drift, Drift{UserID: old.UserID, GuildID: old.GuildID, Stored: old.Count})
	}

	sort.Slice(writes, func(i, j int) bool {
		if writes[i].GuildID != writes[j].GuildID {
			return writes[i].GuildID < writes[j].GuildID
		}
		return writes[i].UserID < writes[j].UserID
	})
	sort.Slice(drift, func(i, j int) bool {
		if drift[i].GuildID != drift[j].GuildID {
			return drift[i].GuildID < drift[j].GuildID
		}
		return drift[i].UserID < drift[j].UserID
	})
	return writes, drift
}
