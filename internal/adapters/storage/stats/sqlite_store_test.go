package stats

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/stats"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db)
}

var seen = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func TestIncrementDecrement_FloorsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Increment(ctx, "g1", "u1", seen); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := s.Decrement(ctx, "g1", "u1"); err != nil {
			t.Fatalf("Decrement: %v", err)
		}
	}
	got, err := s.Get(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Count != 0 {
		t.Errorf("count = %d, want 0", got.Count)
	}
	if !got.LastSeen.Equal(seen) {
		t.Errorf("last seen = %v", got.LastSeen)
	}

	if err := s.Decrement(ctx, "g1", "nobody"); err != nil {
		t.Fatalf("Decrement missing: %v", err)
	}
	if _, err := s.Get(ctx, "g1", "nobody"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing row err = %v", err)
	}
}

func TestCustomName_SurvivesIncrement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Increment(ctx, "g1", "u1", seen); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if err := s.SetCustomName(ctx, "g1", "u1", "Tank"); err != nil {
		t.Fatalf("SetCustomName: %v", err)
	}
	if err := s.Increment(ctx, "g1", "u1", seen); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	got, _ := s.Get(ctx, "g1", "u1")
	if got.Count != 2 || got.CustomName != "Tank" {
		t.Errorf("got %+v", got)
	}
}

func TestCustomName_MissingRowStaysMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetCustomName(ctx, "g1", "ghost", "Ghost"); err != nil {
		t.Fatalf("SetCustomName: %v", err)
	}
	if _, err := s.Get(ctx, "g1", "ghost"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Get err = %v, want sql.ErrNoRows", err)
	}
	list, err := s.List(ctx, ListFilter{GuildID: "g1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list = %+v, want empty", list)
	}
}

func TestList_OrderAndScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rows := []domain.ParticipationStat{
		{UserID: "b", GuildID: "g1", Count: 5},
		{UserID: "a", GuildID: "g1", Count: 5},
		{UserID: "c", GuildID: "g1", Count: 9},
		{UserID: "d", GuildID: "g2", Count: 1},
	}
	for _, r := range rows {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.List(ctx, ListFilter{GuildID: "g1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i, u := range want {
		if got[i].UserID != u {
			t.Errorf("row[%d] = %s, want %s", i, got[i].UserID, u)
		}
	}

	n, err := s.DeleteAll(ctx, "g1")
	if err != nil || n != 3 {
		t.Errorf("DeleteAll g1 = %d, %v", n, err)
	}
	n, err = s.DeleteAll(ctx, "")
	if err != nil || n != 1 {
		t.Errorf("DeleteAll all = %d, %v", n, err)
	}
}

func TestOverrides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveOverride(ctx, domain.NameOverride{UserID: "u1", GuildID: "g1", DisplayName: "Old"}); err != nil {
		t.Fatalf("SaveOverride: %v", err)
	}
	if err := s.SaveOverride(ctx, domain.NameOverride{UserID: "u1", GuildID: "g1", DisplayName: "New"}); err != nil {
		t.Fatalf("SaveOverride replace: %v", err)
	}
	if err := s.SaveOverride(ctx, domain.NameOverride{UserID: "u2", GuildID: "g2", DisplayName: "Other"}); err != nil {
		t.Fatalf("SaveOverride g2: %v", err)
	}

	got, err := s.ListOverrides(ctx, "g1")
	if err != nil {
		t.Fatalf("ListOverrides: %v", err)
	}
	if len(got) != 1 || got[0].DisplayName != "New" {
		t.Errorf("overrides = %+v", got)
	}

	if err := s.DeleteOverride(ctx, "g1", "u1"); err != nil {
		t.Fatalf("DeleteOverride: %v", err)
	}
	all, _ := s.ListOverrides(ctx, "")
	if len(all) != 1 || all[0].GuildID != "g2" {
		t.Errorf("after delete = %+v", all)
	}
}
