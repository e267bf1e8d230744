package nodewar

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/nodewar"
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

var now = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func seedMessage(t *testing.T, s *SQLiteStore, id string, maxCap int) {
	t.Helper()
	m := domain.Message{MessageID: id, GuildID: "g1", ChannelID: "c1", Day: "Sunday", MaxCap: maxCap, CreatedAt: now}
	if err := s.SaveMessage(context.Background(), m); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
}

func TestMessage_SaveGetUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMessage(t, s, "n1", 10)

	got, err := s.GetMessage(ctx, "n1")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.MaxCap != 10 || got.Day != "Sunday" || !got.CreatedAt.Equal(now) {
		t.Errorf("got %+v", got)
	}

	got.MaxCap = 6
	if err := s.SaveMessage(ctx, got); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	got, _ = s.GetMessage(ctx, "n1")
	if got.MaxCap != 6 {
		t.Errorf("max cap = %d, want 6", got.MaxCap)
	}

	if _, err := s.GetMessage(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing err = %v", err)
	}
}

func TestEntries_InsertIgnoresDuplicateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMessage(t, s, "n1", 2)

	e := domain.Entry{MessageID: "n1", UserID: "u1", DisplayName: "One", Position: 1, Status: domain.StatusSigned, SignedAt: now}
	if ok, err := s.InsertEntry(ctx, e); err != nil || !ok {
		t.Fatalf("InsertEntry = %v, %v", ok, err)
	}
	e.Position = 2
	if ok, err := s.InsertEntry(ctx, e); err != nil || ok {
		t.Errorf("duplicate InsertEntry = %v, %v", ok, err)
	}
	list, _ := s.ListEntries(ctx, "n1")
	if len(list) != 1 || list[0].Position != 1 {
		t.Errorf("entries = %+v", list)
	}
}

func TestEntries_OrderStatusDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMessage(t, s, "n1", 1)

	for _, e := range []domain.Entry{
		{MessageID: "n1", UserID: "u3", Position: 3, Status: domain.StatusWaitlist, SignedAt: now},
		{MessageID: "n1", UserID: "u1", Position: 1, Status: domain.StatusSigned, SignedAt: now},
		{MessageID: "n1", UserID: "u2", Position: 2, Status: domain.StatusWaitlist, SignedAt: now},
	} {
		if _, err := s.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	if err := s.UpdateStatus(ctx, "n1", "u2", domain.StatusSigned); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	removed, err := s.DeleteEntry(ctx, "n1", "u1")
	if err != nil || !removed {
		t.Fatalf("DeleteEntry = %v, %v", removed, err)
	}

	list, err := s.ListEntries(ctx, "n1")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(list) != 2 || list[0].UserID != "u2" || list[0].Status != domain.StatusSigned || list[1].UserID != "u3" {
		t.Errorf("entries = %+v", list)
	}
}

func TestDeleteMessage_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMessage(t, s, "n1", 5)
	if _, err := s.InsertEntry(ctx, domain.Entry{MessageID: "n1", UserID: "u1", Position: 1, Status: domain.StatusSigned, SignedAt: now}); err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}

	if err := s.DeleteMessage(ctx, "n1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	list, _ := s.ListEntries(ctx, "n1")
	if len(list) != 0 {
		t.Errorf("entries after delete = %+v", list)
	}
	msgs, _ := s.ListMessages(ctx, ListFilter{})
	if len(msgs) != 0 {
		t.Errorf("messages after delete = %+v", msgs)
	}
}
