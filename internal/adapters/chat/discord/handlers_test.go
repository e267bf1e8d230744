package discord

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/adapters/storage"
	leagueStore "guildleague/internal/adapters/storage/leagueconfig"
	outboxStore "guildleague/internal/adapters/storage/outbox"
	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/application/orchestrators"
	"guildleague/internal/application/projections"
	"guildleague/internal/domain/nodewar"
)

// recordingPlatform posts sequential ids and records edits.
type recordingPlatform struct {
	chat.NoopPlatform
	seq   int
	sent  []chat.Message
	edits map[string]chat.Message
}

func (p *recordingPlatform) Send(_ context.Context, _ string, msg chat.Message) (string, error) {
	p.seq++
	p.sent = append(p.sent, msg)
	return fmt.Sprintf("msg%d", p.seq), nil
}

func (p *recordingPlatform) Edit(_ context.Context, _, messageID string, msg chat.Message) error {
	if p.edits == nil {
		p.edits = map[string]chat.Message{}
	}
	p.edits[messageID] = msg
	return nil
}

func clock() func() time.Time {
	t := time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newServices(t *testing.T) (Services, *recordingPlatform) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.MemoryPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stores := roster.Bind(db)
	platform := &recordingPlatform{}
	now := clock()
	ids := 0
	renderer := &orchestrators.ViewRenderer{
		Slots:   projections.ProjectSlotsDeps{Signups: stores.Signups, Messages: stores.Messages, Overrides: stores.Stats},
		Rosters: projections.ProjectRosterDeps{Nodewar: stores.Nodewar, Overrides: stores.Stats},
		Chat:    platform,
		Now:     now,
	}
	return Services{
		Roster:   roster.NewSQLiteRunner(db),
		Configs:  leagueStore.NewSQLiteStore(db),
		Messages: stores.Messages,
		Nodewar:  stores.Nodewar,
		Stats:    stores.Stats,
		Chat:     platform,
		Refresh: orchestrators.RefreshViewsDeps{
			Renderer:   renderer,
			Outbox:     outboxStore.NewSQLiteStore(db),
			GenerateID: func() string { ids++; return fmt.Sprintf("ob%d", ids) },
			Now:        now,
		},
		Now: now,
	}, platform
}

func slash(name string, strs map[string]string, ints map[string]int64) request {
	req := request{Command: name, GuildID: "g1", ChannelID: "c1", UserID: "admin", UserName: "admin",
		Strings: map[string]string{}, Ints: map[string]int64{}, Users: map[string]string{}, UserNames: map[string]string{}}
	for k, v := range strs {
		req.Strings[k] = v
	}
	for k, v := range ints {
		req.Ints[k] = v
	}
	return req
}

func press(customID, messageID, userID string) request {
	return request{CustomID: customID, GuildID: "g1", ChannelID: "c1", MessageID: messageID, UserID: userID, UserName: "name-" + userID}
}

func TestHandleCommand_SetupAndPostSignup(t *testing.T) {
	svc, platform := newServices(t)
	ctx := context.Background()

	r := svc.handleCommand(ctx, slash(cmdPostSignup, map[string]string{"day": "Sunday"}, nil))
	if !strings.Contains(r.Content, "Please use /setup_league first") {
		t.Errorf("post before setup = %q", r.Content)
	}

	r = svc.handleCommand(ctx, slash(cmdSetupLeague, map[string]string{"day": "Sunday", "ranges": "18:00-19:00"}, nil))
	if r.Content != "Configuration saved for **Sunday** with ranges: 18:00-19:00" {
		t.Errorf("setup = %q", r.Content)
	}
	r = svc.handleCommand(ctx, slash(cmdSetupLeague, map[string]string{"day": "Sunday", "ranges": "18:00"}, nil))
	if !strings.HasPrefix(r.Content, "Invalid ranges:") {
		t.Errorf("bad setup = %q", r.Content)
	}

	r = svc.handleCommand(ctx, slash(cmdPostSignup, map[string]string{"day": "Sunday", "team": "B"}, nil))
	if r.Content != "Signups for **Sunday** posted with 3 slots." {
		t.Errorf("post = %q", r.Content)
	}
	if len(platform.sent) != 1 || len(platform.sent[0].Rows) != 1 {
		t.Fatalf("sent = %+v", platform.sent)
	}
}

func TestHandlePress_SlotToggleRefreshesMessage(t *testing.T) {
	svc, platform := newServices(t)
	ctx := context.Background()
	svc.handleCommand(ctx, slash(cmdSetupLeague, map[string]string{"day": "Sunday", "ranges": "18:00-18:30"}, nil))
	svc.handleCommand(ctx, slash(cmdPostSignup, map[string]string{"day": "Sunday", "team": "A"}, nil))
	buttonID := platform.sent[0].Rows[0][0].CustomID

	if r := svc.handlePress(ctx, press(buttonID, "msg1", "u1")); r.Content != "" {
		t.Errorf("join reply = %q, want silent", r.Content)
	}
	edit, ok := platform.edits["msg1"]
	if !ok {
		t.Fatal("message not refreshed after join")
	}
	if edit.Rows != nil {
		t.Error("refresh replaced the buttons")
	}
	if got := edit.Embeds[0].Fields[0]; got.Name != "🟥 Team A • 18:00 (1)" || got.Value != "name-u1" {
		t.Errorf("field after join = %+v", got)
	}

	svc.handlePress(ctx, press(buttonID, "msg1", "u1"))
	if got := platform.edits["msg1"].Embeds[0].Fields[0]; got.Value != "-" {
		t.Errorf("field after leave = %+v", got)
	}
}

func TestHandlePress_NodewarWaitlistNotice(t *testing.T) {
	svc, platform := newServices(t)
	ctx := context.Background()
	r := svc.handleCommand(ctx, slash(cmdPostNodewar, map[string]string{"day": "Monday 02/03"}, map[string]int64{"max": 1}))
	if r.Content != "Node War signup for **Monday 02/03** posted (max 1)." {
		t.Errorf("post nodewar = %q", r.Content)
	}

	if r := svc.handlePress(ctx, press("nodewar_signup", "msg1", "u1")); r.Content != "" {
		t.Errorf("first join reply = %q", r.Content)
	}
	if r := svc.handlePress(ctx, press("nodewar_signup", "msg1", "u2")); !strings.Contains(r.Content, "waiting list") {
		t.Errorf("second join reply = %q, want waitlist notice", r.Content)
	}
	if fields := platform.edits["msg1"].Embeds[0].Fields; len(fields) != 2 {
		t.Errorf("fields = %d, want signed and waitlist", len(fields))
	}

	svc.handlePress(ctx, press("nodewar_leave", "msg1", "u1"))
	fields := platform.edits["msg1"].Embeds[0].Fields
	if len(fields) != 1 || !strings.Contains(fields[0].Value, "name-u2") {
		t.Errorf("after leave fields = %+v, want u2 promoted", fields)
	}

	if r := svc.handlePress(ctx, press("nodewar_signup", "gone", "u1")); r.Content != "This Node War signup is no longer active." {
		t.Errorf("unknown roster reply = %q", r.Content)
	}
	if r := svc.handlePress(ctx, press("something_else", "msg1", "u1")); r.Content != "" {
		t.Errorf("unknown button reply = %q", r.Content)
	}
}

func TestHandleCommand_EditNodewar(t *testing.T) {
	svc, platform := newServices(t)
	ctx := context.Background()
	svc.handleCommand(ctx, slash(cmdPostNodewar, map[string]string{"day": "Friday"}, map[string]int64{"max": 3}))
	for _, u := range []string{"u1", "u2", "u3"} {
		svc.handlePress(ctx, press("nodewar_signup", "msg1", u))
	}

	r := svc.handleCommand(ctx, slash(cmdEditNodewar, map[string]string{"message_id": " msg1 "}, map[string]int64{"max": 2}))
	want := "✅ **Friday** cap updated: **3** → **2**\n⚠️ 1 player moved to the waiting list."
	if r.Content != want {
		t.Errorf("edit = %q, want %q", r.Content, want)
	}
	if !strings.HasPrefix(platform.edits["msg1"].Embeds[0].Fields[0].Name, "✅ Signed Up (2/2)") {
		t.Errorf("roster not refreshed: %+v", platform.edits["msg1"].Embeds[0].Fields[0])
	}

	r = svc.handleCommand(ctx, slash(cmdEditNodewar, map[string]string{"message_id": "nope"}, map[string]int64{"max": 5}))
	if r.Content != "❌ No Node War signup found with that message ID." {
		t.Errorf("missing = %q", r.Content)
	}
}

func TestCapChangeText(t *testing.T) {
	tests := []struct {
		res  orchestrators.UpdateNodewarCapResult
		max  int
		want string
	}{
		{orchestrators.UpdateNodewarCapResult{Day: "Sun", PreviousCap: 10}, 12, "✅ **Sun** cap updated: **10** → **12**"},
		{orchestrators.UpdateNodewarCapResult{Day: "Sun", PreviousCap: 10, Promoted: 2}, 12,
			"✅ **Sun** cap updated: **10** → **12**\n🎉 2 players promoted from the waiting list."},
		{orchestrators.UpdateNodewarCapResult{Day: "Sun", PreviousCap: 10, Demoted: 3}, 7,
			"✅ **Sun** cap updated: **10** → **7**\n⚠️ 3 players moved to the waiting list."},
	}
	for _, tt := range tests {
		if got := capChangeText(tt.res, tt.max); got != tt.want {
			t.Errorf("capChangeText(%+v) = %q, want %q", tt.res, got, tt.want)
		}
	}
}

func TestHandleCommand_SetNameAndStats(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	req := slash(cmdSetName, map[string]string{"name": "  Captain Longname The Great  "}, nil)
	req.Users["user"] = "u7"
	r := svc.handleCommand(ctx, req)
	if r.Content != "✅ <@u7> will now display as **Captain Longname The** in signups." {
		t.Errorf("set = %q", r.Content)
	}

	req = slash(cmdSetName, nil, nil)
	req.Users["user"] = "u7"
	req.UserNames["u7"] = "seven"
	if r := svc.handleCommand(ctx, req); r.Content != "✅ Removed name override for <@u7>. They will show as **seven**." {
		t.Errorf("clear = %q", r.Content)
	}

	r = svc.handleCommand(ctx, slash(cmdLeagueStats, nil, nil))
	if r.Embed == nil || r.Embed.Description != "No stats recorded yet." {
		t.Errorf("empty stats = %+v", r.Embed)
	}
}

func TestHandleCommand_PostNodewarRejectsCap(t *testing.T) {
	svc, platform := newServices(t)
	r := svc.handleCommand(context.Background(), slash(cmdPostNodewar, map[string]string{"day": "Friday"}, map[string]int64{"max": nodewar.MaxCap + 1}))
	if !strings.Contains(r.Content, "out of range") {
		t.Errorf("reply = %q", r.Content)
	}
	if len(platform.sent) != 0 {
		t.Error("rejected roster was posted")
	}
}

func TestCommandDefinitions(t *testing.T) {
	defs := commandDefinitions()
	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
	}
	for _, want := range []string{cmdSetupLeague, cmdPostSignup, cmdPostNodewar, cmdEditNodewar, cmdSetName, cmdLeagueStats} {
		if !names[want] {
			t.Errorf("missing command %s", want)
		}
	}
	for _, d := range defs {
		if d.Name != cmdPostNodewar {
			continue
		}
		max := d.Options[1]
		if max.Required || *max.MinValue != nodewar.MinCap || max.MaxValue != nodewar.MaxCap {
			t.Errorf("post_nodewar max option = %+v", max)
		}
	}
}
