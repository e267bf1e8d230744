package outbox

import (
	"errors"
	"testing"
	"time"
)

func TestEntry_Validate(t *testing.T) {
	e := Entry{ActionType: ActionRefreshSignup, Target: "m1", CreatedAt: time.Now()}
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if e.MaxAttempts != DefaultMaxAttempts || e.Payload != "{}" {
		t.Errorf("defaults not applied: %+v", e)
	}

	missing := Entry{ActionType: ActionRefreshSignup, CreatedAt: time.Now()}
	if err := missing.Validate(); err != ErrEmptyTarget {
		t.Errorf("missing target err = %v", err)
	}
}

func TestEntry_Lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry{ActionType: ActionRefreshNodewar, Target: "m1", Status: StatusPending, MaxAttempts: 2, CreatedAt: now}

	e.MarkAttempt(now)
	e.MarkFailed(errors.New("gateway timeout"))
	if e.Status != StatusRetrying || !e.IsOpen() {
		t.Fatalf("after first failure status = %s", e.Status)
	}

	e.MarkAttempt(now.Add(time.Minute))
	e.MarkFailed(errors.New("gateway timeout"))
	if e.Status != StatusFailed || !e.IsTerminal() {
		t.Fatalf("after exhausting attempts status = %s", e.Status)
	}

	if err := e.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if !e.IsOpen() {
		t.Error("reopened entry should be open")
	}

	e.MarkAttempt(now.Add(2 * time.Minute))
	e.MarkSuccess()
	if e.Status != StatusDone || e.ErrorMessage != "" {
		t.Errorf("after success = %+v", e)
	}
	if err := e.Reopen(); err != ErrNotRetryable {
		t.Errorf("reopen done entry err = %v", err)
	}
}

func TestEntry_NextRetryDelay(t *testing.T) {
	base, maxDelay := 10*time.Second, time.Minute
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 10 * time.Second},
		{1, 20 * time.Second},
		{2, 40 * time.Second},
		{3, time.Minute},
		{40, time.Minute},
	}
	for _, tt := range tests {
		e := Entry{Attempts: tt.attempts}
		if got := e.NextRetryDelay(base, maxDelay); got != tt.want {
			t.Errorf("attempts=%d delay = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestEntry_DueAt(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry{CreatedAt: created}
	if !e.DueAt(time.Second, time.Minute).Equal(created) {
		t.Error("never-attempted entry is due at creation")
	}
	e.MarkAttempt(created.Add(time.Hour))
	want := created.Add(time.Hour).Add(2 * time.Second)
	if got := e.DueAt(time.Second, time.Minute); !got.Equal(want) {
		t.Errorf("DueAt = %v, want %v", got, want)
	}
}
