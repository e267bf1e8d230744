package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domain "guildleague/internal/domain/outbox"
)

// OutboxStore is the render task persistence the processor needs.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
	FindOpen(ctx context.Context, actionType, target string) (domain.Entry, error)
	DeleteDoneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActionExecutor replays one kind of deferred side effect.
type ActionExecutor interface {
	// Execute runs the action for target with the entry's JSON payload.
	Execute(ctx context.Context, target, payload string) error
}

// ActionExecutorFunc adapts a function to ActionExecutor.
type ActionExecutorFunc func(ctx context.Context, target, payload string) error

// Execute calls f.
func (f ActionExecutorFunc) Execute(ctx context.Context, target, payload string) error {
	return f(ctx, target, payload)
}

// OutboxProcessor retries render tasks and report mail with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	retention time.Duration
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       time.Now,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 10,
		retention: 7 * 24 * time.Hour,
	}
}

// ProcessPending runs every due entry in the next batch.
// PRE: Context is valid
// POST: Due entries attempted; failures recorded for a later retry
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox entries: %w", err)
	}

	attempted := 0
	for _, entry := range entries {
		ran, err := p.processEntry(ctx, entry)
		if err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
		if ran {
			attempted++
		}
	}
	return attempted, nil
}

// processEntry attempts one entry once its backoff has elapsed.
func (p *OutboxProcessor) processEntry(ctx context.Context, entry domain.Entry) (bool, error) {
	if p.now().Before(entry.DueAt(p.baseDelay, p.maxDelay)) {
		return false, nil
	}
	return true, p.attempt(ctx, &entry)
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry *domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	entry.MarkAttempt(p.now())
	if !ok {
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		return p.store.Save(ctx, *entry)
	}

	if err := executor.Execute(ctx, entry.Target, entry.Payload); err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType,
			"target", entry.Target, "attempt", entry.Attempts, "error", err.Error())
	} else {
		entry.MarkSuccess()
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "target", entry.Target)
	}
	return p.store.Save(ctx, *entry)
}

// ProcessSingle runs one entry now, ignoring backoff (admin retry).
// PRE: entryID is non-empty
// POST: Entry attempted and its status updated; the attempt error is returned
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return notFound(err, "outbox entry", entryID)
	}
	if err := entry.Reopen(); err != nil {
		return fmt.Errorf("entry %s: %w", entryID, err)
	}
	if err := p.attempt(ctx, &entry); err != nil {
		return err
	}
	if entry.Status != domain.StatusDone {
		return fmt.Errorf("retry %s: %s", entryID, entry.ErrorMessage)
	}
	return nil
}

// AbandonEntry marks an entry as abandoned by admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return notFound(err, "outbox entry", entryID)
	}
	entry.MarkAbandoned()
	if err := p.store.Save(ctx, entry); err != nil {
		return err
	}
	slog.Info("outbox_action_abandoned", "entry_id", entry.ID, "action_type", entry.ActionType, "target", entry.Target)
	return nil
}

// Prune removes finished entries older than the retention window.
func (p *OutboxProcessor) Prune(ctx context.Context) (int64, error) {
	return p.store.DeleteDoneBefore(ctx, p.now().Add(-p.retention))
}

// Run processes pending entries every interval until ctx is cancelled.
// PRE: interval > 0
// POST: Returns nil on cancellation; individual failures are logged
func (p *OutboxProcessor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := p.ProcessPending(runCtx); err != nil {
				slog.Error("outbox_background_process_failed", "error", err.Error())
			}
			if n, err := p.Prune(runCtx); err != nil {
				slog.Error("outbox_prune_failed", "error", err.Error())
			} else if n > 0 {
				slog.Info("outbox_pruned", "removed", n)
			}
			cancel()
		case <-ctx.Done():
			slog.Info("outbox_background_worker_stopped")
			return nil
		}
	}
}
