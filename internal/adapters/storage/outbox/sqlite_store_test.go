package outbox

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/outbox"
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

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func save(t *testing.T, s *SQLiteStore, e domain.Entry) {
	t.Helper()
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := s.Save(context.Background(), e); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	e := domain.Entry{ID: "o1", ActionType: domain.ActionRefreshSignup, Target: "m1", Status: domain.StatusPending, CreatedAt: t0}
	save(t, s, e)

	got, err := s.GetByID(context.Background(), "o1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Target != "m1" || got.Payload != "{}" || got.MaxAttempts != domain.DefaultMaxAttempts {
		t.Errorf("got %+v", got)
	}
	if !got.LastAttemptedAt.IsZero() || !got.CreatedAt.Equal(t0) {
		t.Errorf("times = %v / %v", got.LastAttemptedAt, got.CreatedAt)
	}
}

func TestListPending_SkipsExhaustedAndDone(t *testing.T) {
	s := newTestStore(t)
	save(t, s, domain.Entry{ID: "open", ActionType: domain.ActionRefreshSignup, Target: "m1", Status: domain.StatusRetrying, Attempts: 1, CreatedAt: t0.Add(time.Minute)})
	save(t, s, domain.Entry{ID: "first", ActionType: domain.ActionRefreshSignup, Target: "m2", Status: domain.StatusPending, CreatedAt: t0})
	save(t, s, domain.Entry{ID: "done", ActionType: domain.ActionRefreshSignup, Target: "m3", Status: domain.StatusDone, CreatedAt: t0})
	save(t, s, domain.Entry{ID: "spent", ActionType: domain.ActionRefreshSignup, Target: "m4", Status: domain.StatusRetrying, Attempts: 2, MaxAttempts: 2, CreatedAt: t0})

	got, err := s.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 2 || got[0].ID != "first" || got[1].ID != "open" {
		t.Errorf("pending = %+v", got)
	}

	recent, _ := s.ListRecent(context.Background(), 2)
	if len(recent) != 2 || recent[0].ID != "open" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestFindOpen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	save(t, s, domain.Entry{ID: "o1", ActionType: domain.ActionRefreshNodewar, Target: "n1", Status: domain.StatusPending, CreatedAt: t0})

	got, err := s.FindOpen(ctx, domain.ActionRefreshNodewar, "n1")
	if err != nil || got.ID != "o1" {
		t.Fatalf("FindOpen = %+v, %v", got, err)
	}
	if _, err := s.FindOpen(ctx, domain.ActionRefreshSignup, "n1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("other action err = %v", err)
	}
}

func TestDeleteDoneBefore(t *testing.T) {
	s := newTestStore(t)
	save(t, s, domain.Entry{ID: "old", ActionType: domain.ActionRefreshSignup, Target: "m1", Status: domain.StatusDone, CreatedAt: t0})
	save(t, s, domain.Entry{ID: "failed", ActionType: domain.ActionRefreshSignup, Target: "m1", Status: domain.StatusFailed, CreatedAt: t0})
	save(t, s, domain.Entry{ID: "new", ActionType: domain.ActionRefreshSignup, Target: "m1", Status: domain.StatusDone, CreatedAt: t0.Add(48 * time.Hour)})

	n, err := s.DeleteDoneBefore(context.Background(), t0.Add(time.Hour))
	if err != nil || n != 1 {
		t.Errorf("DeleteDoneBefore = %d, %v", n, err)
	}
	if _, err := s.GetByID(context.Background(), "failed"); err != nil {
		t.Errorf("failed entry pruned: %v", err)
	}
}
