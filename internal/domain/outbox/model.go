package outbox

import (
	"errors"
	"time"
)

// Status constants for the render task lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Action types the background worker knows how to replay.
const (
	ActionRefreshSignup  = "refresh_signup"
	ActionRefreshNodewar = "refresh_nodewar"
	ActionReportEmail    = "report_email"
)

// DefaultMaxAttempts applies when an entry is saved without a limit.
const DefaultMaxAttempts = 8

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyTarget     = errors.New("target is required")
	ErrNotRetryable    = errors.New("entry is in a terminal state")
)

// Entry is a deferred, independently retryable side effect of a committed mutation.
// Target names what the action applies to (a message id, or a mail recipient).
type Entry struct {
	ID              string
	ActionType      string
	Target          string
	Payload         string // JSON, may be "{}"
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ErrorMessage    string
}

// Validate checks that the Entry has valid data and applies the attempt default.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise; MaxAttempts > 0
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Target == "" {
		return ErrEmptyTarget
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.Payload == "" {
		e.Payload = "{}"
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// IsOpen reports whether the worker may still pick the entry up.
func (e *Entry) IsOpen() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying) && e.Attempts < e.MaxAttempts
}

// IsTerminal returns true once the entry is done, abandoned, or out of attempts.
func (e *Entry) IsTerminal() bool {
	if e.Status == StatusDone || e.Status == StatusAbandoned {
		return true
	}
	return e.Status == StatusFailed && e.Attempts >= e.MaxAttempts
}

// MarkAttempt records a processing attempt.
// PRE: Entry is open
// POST: Attempts incremented, LastAttemptedAt = now, status retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry as completed.
func (e *Entry) MarkSuccess() {
	e.Status = StatusDone
	e.ErrorMessage = ""
}

// MarkFailed records the error; the entry fails permanently once attempts are exhausted.
// POST: Status failed when Attempts >= MaxAttempts, otherwise unchanged
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// MarkAbandoned marks the entry as abandoned by an admin.
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// Reopen gives a failed entry one more attempt, for admin-triggered retries.
// PRE: Entry is not done or abandoned
// POST: Status retrying and MaxAttempts > Attempts
func (e *Entry) Reopen() error {
	if e.Status == StatusDone || e.Status == StatusAbandoned {
		return ErrNotRetryable
	}
	if e.Attempts >= e.MaxAttempts {
		e.MaxAttempts = e.Attempts + 1
	}
	e.Status = StatusRetrying
	e.LastAttemptedAt = time.Time{}
	return nil
}

// NextRetryDelay returns 2^attempts * baseDelay capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

// DueAt returns when the entry may next be attempted.
func (e *Entry) DueAt(baseDelay, maxDelay time.Duration) time.Time {
	if e.LastAttemptedAt.IsZero() {
		return e.CreatedAt
	}
	return e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay))
}
