package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"guildleague/internal/adapters/chat"
	outboxStore "guildleague/internal/adapters/storage/outbox"
	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/application/projections"
	"guildleague/internal/domain/outbox"
	"guildleague/internal/domain/signup"
	"guildleague/internal/domain/stats"
)

func newRenderer(db *sql.DB, platform *fakeChat) *ViewRenderer {
	stores := roster.Bind(db)
	return &ViewRenderer{
		Slots:   projections.ProjectSlotsDeps{Signups: stores.Signups, Messages: stores.Messages, Overrides: stores.Stats},
		Rosters: projections.ProjectRosterDeps{Nodewar: stores.Nodewar, Overrides: stores.Stats},
		Chat:    platform,
		Now:     ticker(),
	}
}

func TestViewRenderer_RefreshSignupKeepsButtons(t *testing.T) {
	db, r := openRoster(t)
	seedMeta(t, db, signup.MessageMeta{MessageID: "m1", GuildID: "g1", ChannelID: "c1", Day: "Saturday", Slots: []string{"18:00", "18:30"}})
	if _, err := ExecuteToggleSlotSignup(context.Background(), ToggleSlotSignupInput{
		MessageID: "m1", GuildID: "g1", UserID: "u1", SlotTime: "18:30", DisplayName: "alice",
	}, toggleDeps(r)); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := roster.Bind(db).Stats.SaveOverride(context.Background(), stats.NameOverride{UserID: "u1", GuildID: "g1", DisplayName: "Ally"}); err != nil {
		t.Fatalf("override: %v", err)
	}
	platform := &fakeChat{}

	if err := newRenderer(db, platform).Refresh(context.Background(), outbox.ActionRefreshSignup, "m1", ViewHint{}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(platform.edited) != 1 {
		t.Fatalf("edits = %d, want 1", len(platform.edited))
	}
	edit := platform.edited[0]
	if edit.ChannelID != "c1" || edit.Msg.Rows != nil {
		t.Errorf("edit = %+v, want channel c1 with controls untouched", edit)
	}
	fields := edit.Msg.Embeds[0].Fields
	if len(fields) != 2 {
		t.Fatalf("fields = %+v, want 2 slots", fields)
	}
	if fields[0].Value != "-" || fields[1].Value != "Ally" {
		t.Errorf("field values = %q, %q; want - and Ally", fields[0].Value, fields[1].Value)
	}
}

func TestViewRenderer_RefreshNodewar(t *testing.T) {
	db, r := openRoster(t)
	seedNodewar(t, db, "nw", 1)
	joinN(t, NodewarDeps{Roster: r, Now: ticker()}, "nw", 2)
	platform := &fakeChat{}

	if err := newRenderer(db, platform).Refresh(context.Background(), outbox.ActionRefreshNodewar, "nw", ViewHint{}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	fields := platform.edited[0].Msg.Embeds[0].Fields
	if len(fields) != 2 || fields[0].Name != "✅ Signed Up (1/1)" || fields[1].Name != "⏳ Waiting List (1)" {
		t.Errorf("fields = %+v", fields)
	}
}

func TestRefreshViews_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		editErr  error
		target   RefreshTarget
		want     string
		wantOpen bool
	}{
		{"refreshed", nil, RefreshTarget{Action: outbox.ActionRefreshSignup, MessageID: "m1"}, "refreshed", false},
		{"message deleted upstream", chat.ErrNotFound, RefreshTarget{Action: outbox.ActionRefreshSignup, MessageID: "m1"}, "dropped", false},
		{"no channel known", nil, RefreshTarget{Action: outbox.ActionRefreshSignup, MessageID: "orphan"}, "dropped", false},
		{"unknown roster", nil, RefreshTarget{Action: outbox.ActionRefreshNodewar, MessageID: "ghost"}, "dropped", false},
		{"transport failure", &chat.TransportError{Op: "edit", Err: errors.New("502")},
			RefreshTarget{Action: outbox.ActionRefreshSignup, MessageID: "m1"}, "deferred", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := openRoster(t)
			seedMeta(t, db, signup.MessageMeta{MessageID: "m1", GuildID: "g1", ChannelID: "c1", Day: "Saturday"})
			platform := &fakeChat{editErr: tt.editErr}
			store := outboxStore.NewSQLiteStore(db)

			res := ExecuteRefreshViews(context.Background(), []RefreshTarget{tt.target}, RefreshViewsDeps{
				Renderer: newRenderer(db, platform), Outbox: store, GenerateID: sequentialIDs("ob"), Now: ticker(),
			})
			got := map[string]int{"refreshed": len(res.Refreshed), "dropped": len(res.Dropped), "deferred": len(res.Deferred)}
			if got[tt.want] != 1 {
				t.Errorf("result = %+v, want %s", res, tt.want)
			}
			_, err := store.FindOpen(context.Background(), tt.target.Action, tt.target.MessageID)
			if hasOpen := err == nil; hasOpen != tt.wantOpen {
				t.Errorf("open outbox entry = %v, want %v", hasOpen, tt.wantOpen)
			}
		})
	}
}

func TestRefreshViews_CoalescesDeferredTasks(t *testing.T) {
	db, _ := openRoster(t)
	seedMeta(t, db, signup.MessageMeta{MessageID: "m1", GuildID: "g1", ChannelID: "c1", Day: "Saturday"})
	platform := &fakeChat{editErr: &chat.TransportError{Op: "edit", Err: errors.New("rate limited")}}
	store := outboxStore.NewSQLiteStore(db)
	deps := RefreshViewsDeps{Renderer: newRenderer(db, platform), Outbox: store, GenerateID: sequentialIDs("ob"), Now: ticker()}

	for i := 0; i < 3; i++ {
		ExecuteRefreshViews(context.Background(), SignupTargets(ViewHint{ChannelID: "c1"}, "m1"), deps)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("outbox rows = %d, want 1", n)
	}
}

func TestViewRenderer_ExecutorsReplayWithChannelHint(t *testing.T) {
	db, _ := openRoster(t)
	platform := &fakeChat{}
	exec := newRenderer(db, platform).Executors()[outbox.ActionRefreshSignup]
	if exec == nil {
		t.Fatal("no executor for refresh_signup")
	}

	if err := exec.Execute(context.Background(), "legacy", `{"channel_id":"c7"}`); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(platform.edited) != 1 || platform.edited[0].ChannelID != "c7" {
		t.Errorf("edited = %+v, want edit in c7", platform.edited)
	}
}

func TestViewRenderer_ExecutorsReplayGuildHint(t *testing.T) {
	db, _ := openRoster(t)
	stores := roster.Bind(db)
	if _, err := stores.Signups.Insert(context.Background(), signup.Entry{
		MessageID: "legacy", UserID: "u1", SlotTime: "18:00", DisplayName: "alice", JoinedAt: rosterTime,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for _, o := range []stats.NameOverride{
		{UserID: "u1", GuildID: "g1", DisplayName: "Ally"},
		{UserID: "u1", GuildID: "g2", DisplayName: "Elsewhere"},
	} {
		if err := stores.Stats.SaveOverride(context.Background(), o); err != nil {
			t.Fatalf("override: %v", err)
		}
	}
	platform := &fakeChat{}
	exec := newRenderer(db, platform).Executors()[outbox.ActionRefreshSignup]

	if err := exec.Execute(context.Background(), "legacy", `{"channel_id":"c7","guild_id":"g2"}`); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(platform.edited) != 1 {
		t.Fatalf("edits = %d, want 1", len(platform.edited))
	}
	if got := platform.edited[0].Msg.Embeds[0].Fields[0].Value; got != "Elsewhere" {
		t.Errorf("field = %q, want the g2 override", got)
	}
}
