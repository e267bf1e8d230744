package orchestrators

import (
	"context"
	"errors"
	"testing"

	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/domain/signup"
	"guildleague/internal/domain/stats"
)

func TestResyncStats_RepairsDrift(t *testing.T) {
	db, r := openRoster(t)
	seedMeta(t, db, signup.MessageMeta{MessageID: "m1", GuildID: "g1", Day: "Saturday"})
	for _, u := range []string{"u1", "u2"} {
		if _, err := ExecuteToggleSlotSignup(context.Background(), ToggleSlotSignupInput{
			MessageID: "m1", GuildID: "g1", UserID: u, SlotTime: "18:00",
		}, toggleDeps(r)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	ctx := context.Background()
	store := roster.Bind(db).Stats
	if err := store.Save(ctx, stats.ParticipationStat{UserID: "u1", GuildID: "g1", Count: 9, CustomName: "Ally"}); err != nil {
		t.Fatalf("corrupt u1: %v", err)
	}
	if err := store.Save(ctx, stats.ParticipationStat{UserID: "u3", GuildID: "g1", Count: 4}); err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	res, err := ExecuteResyncStats(ctx, "g1", StatsDeps{Roster: r})
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if len(res.Drift) != 2 {
		t.Errorf("drift = %+v, want u1 and u3", res.Drift)
	}
	if got := statCount(t, db, "g1", "u1"); got != 1 {
		t.Errorf("u1 = %d, want 1", got)
	}
	if got := statCount(t, db, "g1", "u3"); got != 0 {
		t.Errorf("u3 = %d, want 0", got)
	}
	st, err := store.Get(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get u1: %v", err)
	}
	if st.CustomName != "Ally" {
		t.Errorf("CustomName = %q, want kept", st.CustomName)
	}

	again, err := ExecuteResyncStats(ctx, "g1", StatsDeps{Roster: r})
	if err != nil {
		t.Fatalf("second resync: %v", err)
	}
	if again.Written != 0 || len(again.Drift) != 0 {
		t.Errorf("second resync = %+v, want no writes", again)
	}
}

func TestAdjustStats(t *testing.T) {
	db, r := openRoster(t)
	ctx := context.Background()
	store := roster.Bind(db).Stats
	for _, s := range []stats.ParticipationStat{
		{UserID: "u1", GuildID: "g1", Count: 5},
		{UserID: "u2", GuildID: "g1", Count: 2},
	} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	res, err := ExecuteAdjustStats(ctx, AdjustStatsInput{
		GuildID:    "g1",
		Reductions: map[string]int{"u2": 3, "u1": 2, "u9": 1},
	}, StatsDeps{Roster: r})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	want := []AdjustedStat{{UserID: "u1", Before: 5, After: 3}, {UserID: "u2", Before: 2, After: 0}}
	if len(res.Adjusted) != len(want) {
		t.Fatalf("Adjusted = %+v, want %+v", res.Adjusted, want)
	}
	for i := range want {
		if res.Adjusted[i] != want[i] {
			t.Errorf("Adjusted[%d] = %+v, want %+v", i, res.Adjusted[i], want[i])
		}
	}
	if len(res.Missing) != 1 || res.Missing[0] != "u9" {
		t.Errorf("Missing = %v, want [u9]", res.Missing)
	}
}

func TestAdjustStats_Validation(t *testing.T) {
	_, r := openRoster(t)
	tests := []struct {
		name  string
		input AdjustStatsInput
	}{
		{"no guild", AdjustStatsInput{Reductions: map[string]int{"u1": 1}}},
		{"zero amount", AdjustStatsInput{GuildID: "g1", Reductions: map[string]int{"u1": 0}}},
		{"negative amount", AdjustStatsInput{GuildID: "g1", Reductions: map[string]int{"u1": -2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteAdjustStats(context.Background(), tt.input, StatsDeps{Roster: r})
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestResetStats_ScopedToGuild(t *testing.T) {
	db, r := openRoster(t)
	ctx := context.Background()
	store := roster.Bind(db).Stats
	for _, s := range []stats.ParticipationStat{
		{UserID: "u1", GuildID: "g1", Count: 1},
		{UserID: "u2", GuildID: "g1", Count: 1},
		{UserID: "u1", GuildID: "g2", Count: 1},
	} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := ExecuteResetStats(ctx, "g1", StatsDeps{Roster: r})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	if got := statCount(t, db, "g2", "u1"); got != 1 {
		t.Errorf("g2 counter = %d, want untouched", got)
	}
}
