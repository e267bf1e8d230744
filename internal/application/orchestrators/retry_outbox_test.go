package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	outboxStore "guildleague/internal/adapters/storage/outbox"
	"guildleague/internal/domain/outbox"
)

// flakyExecutor fails its first failures calls, then succeeds.
type flakyExecutor struct {
	failures int
	calls    []string
}

func (f *flakyExecutor) Execute(_ context.Context, target, _ string) error {
	f.calls = append(f.calls, target)
	if len(f.calls) <= f.failures {
		return errors.New("gateway timeout")
	}
	return nil
}

func newTestProcessor(t *testing.T, exec ActionExecutor) (*OutboxProcessor, *outboxStore.SQLiteStore, *time.Time) {
	t.Helper()
	db, _ := openRoster(t)
	store := outboxStore.NewSQLiteStore(db)
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionRefreshSignup: exec})
	now := rosterTime
	p.now = func() time.Time { return now }
	return p, store, &now
}

func saveEntry(t *testing.T, store *outboxStore.SQLiteStore, e outbox.Entry) {
	t.Helper()
	if err := e.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := store.Save(context.Background(), e); err != nil {
		t.Fatalf("save entry: %v", err)
	}
}

func TestOutboxProcessor_RetriesWithBackoff(t *testing.T) {
	exec := &flakyExecutor{failures: 1}
	p, store, now := newTestProcessor(t, exec)
	saveEntry(t, store, outbox.Entry{ID: "e1", ActionType: outbox.ActionRefreshSignup, Target: "m1",
		Status: outbox.StatusPending, CreatedAt: rosterTime})
	ctx := context.Background()

	n, err := p.ProcessPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("first pass = %d, %v; want 1 attempt", n, err)
	}
	e, _ := store.GetByID(ctx, "e1")
	if e.Status != outbox.StatusRetrying || e.ErrorMessage != "gateway timeout" {
		t.Fatalf("after failure = %+v", e)
	}

	n, _ = p.ProcessPending(ctx)
	if n != 0 {
		t.Errorf("attempted %d before backoff elapsed, want 0", n)
	}

	*now = now.Add(2 * time.Minute)
	n, _ = p.ProcessPending(ctx)
	if n != 1 {
		t.Fatalf("attempted %d after backoff, want 1", n)
	}
	e, _ = store.GetByID(ctx, "e1")
	if e.Status != outbox.StatusDone || e.Attempts != 2 {
		t.Errorf("after success = %+v, want done at 2 attempts", e)
	}
}

func TestOutboxProcessor_UnknownActionFails(t *testing.T) {
	p, store, _ := newTestProcessor(t, &flakyExecutor{})
	saveEntry(t, store, outbox.Entry{ID: "e1", ActionType: "mystery", Target: "x", MaxAttempts: 1,
		Status: outbox.StatusPending, CreatedAt: rosterTime})

	if _, err := p.ProcessPending(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	e, _ := store.GetByID(context.Background(), "e1")
	if e.Status != outbox.StatusFailed {
		t.Errorf("Status = %q, want failed", e.Status)
	}
}

func TestOutboxProcessor_ProcessSingleReopensFailed(t *testing.T) {
	exec := &flakyExecutor{}
	p, store, _ := newTestProcessor(t, exec)
	saveEntry(t, store, outbox.Entry{ID: "e1", ActionType: outbox.ActionRefreshSignup, Target: "m1",
		Status: outbox.StatusFailed, Attempts: 3, MaxAttempts: 3, CreatedAt: rosterTime})
	ctx := context.Background()

	if err := p.ProcessSingle(ctx, "e1"); err != nil {
		t.Fatalf("process single: %v", err)
	}
	e, _ := store.GetByID(ctx, "e1")
	if e.Status != outbox.StatusDone {
		t.Errorf("Status = %q, want done", e.Status)
	}
	if err := p.ProcessSingle(ctx, "e1"); !errors.Is(err, outbox.ErrNotRetryable) {
		t.Errorf("retry of done entry err = %v, want ErrNotRetryable", err)
	}
	if err := p.ProcessSingle(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing entry err = %v, want ErrNotFound", err)
	}
}

func TestOutboxProcessor_AbandonAndPrune(t *testing.T) {
	p, store, now := newTestProcessor(t, &flakyExecutor{})
	saveEntry(t, store, outbox.Entry{ID: "e1", ActionType: outbox.ActionRefreshSignup, Target: "m1",
		Status: outbox.StatusPending, CreatedAt: rosterTime})
	ctx := context.Background()

	if err := p.AbandonEntry(ctx, "e1"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if n, _ := p.ProcessPending(ctx); n != 0 {
		t.Errorf("abandoned entry attempted")
	}

	*now = now.Add(8 * 24 * time.Hour)
	removed, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("pruned = %d, want 1", removed)
	}
}

func TestOutboxProcessor_RunStopsOnCancel(t *testing.T) {
	p, _, _ := newTestProcessor(t, &flakyExecutor{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
