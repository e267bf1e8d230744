package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/domain/nodewar"
)

// NodewarDeps holds dependencies for the capacity-bounded roster commands.
type NodewarDeps struct {
	Roster RosterRunner
	Now    func() time.Time
}

// JoinNodewarInput carries a Sign Up press.
type JoinNodewarInput struct {
	MessageID   string
	UserID      string
	DisplayName string
}

// JoinNodewarResult describes the entry after the join.
// Joined is false when the user was already on the roster.
type JoinNodewarResult struct {
	Joined   bool
	Status   string
	Position int
}

// ExecuteJoinNodewar appends the user to the roster, signed while there is room.
// PRE: message exists
// POST: One entry for the user; new entries take the next position
// INVARIANT: signed entries never exceed the message's max cap
func ExecuteJoinNodewar(ctx context.Context, input JoinNodewarInput, deps NodewarDeps) (JoinNodewarResult, error) {
	if input.MessageID == "" || input.UserID == "" {
		return JoinNodewarResult{}, invalid("user", "message and user are required")
	}

	var result JoinNodewarResult
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		msg, err := tx.Nodewar.GetMessage(ctx, input.MessageID)
		if err != nil {
			return notFound(err, "nodewar message", input.MessageID)
		}
		entries, err := tx.Nodewar.ListEntries(ctx, input.MessageID)
		if err != nil {
			return fmt.Errorf("list nodewar entries: %w", err)
		}
		if existing, ok := nodewar.Find(entries, input.UserID); ok {
			result = JoinNodewarResult{Status: existing.Status, Position: existing.Position}
			return nil
		}

		entry := nodewar.Entry{
			MessageID:   input.MessageID,
			UserID:      input.UserID,
			DisplayName: input.DisplayName,
			Position:    nodewar.NextPosition(entries),
			Status:      nodewar.JoinStatus(entries, msg.MaxCap),
			SignedAt:    deps.Now(),
		}
		inserted, err := tx.Nodewar.InsertEntry(ctx, entry)
		if err != nil {
			return fmt.Errorf("insert nodewar entry: %w", err)
		}
		result = JoinNodewarResult{Joined: inserted, Status: entry.Status, Position: entry.Position}
		return nil
	})
	if err != nil {
		return JoinNodewarResult{}, err
	}

	if result.Joined {
		slog.Info("roster_event", "event", "nodewar_joined", "message_id", input.MessageID,
			"user_id", input.UserID, "status", result.Status, "position", result.Position)
	}
	return result, nil
}

// LeaveNodewarInput carries a Leave press.
type LeaveNodewarInput struct {
	MessageID string
	UserID    string
}

// LeaveNodewarResult reports the removal and any promotion it caused.
type LeaveNodewarResult struct {
	Left       bool
	PromotedID string
}

// ExecuteLeaveNodewar removes the user and promotes the first waitlisted entry into a freed spot.
// PRE: message exists
// POST: User has no entry; at most one waitlist entry became signed
func ExecuteLeaveNodewar(ctx context.Context, input LeaveNodewarInput, deps NodewarDeps) (LeaveNodewarResult, error) {
	var result LeaveNodewarResult
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		result = LeaveNodewarResult{}
		msg, err := tx.Nodewar.GetMessage(ctx, input.MessageID)
		if err != nil {
			return notFound(err, "nodewar message", input.MessageID)
		}
		entries, err := tx.Nodewar.ListEntries(ctx, input.MessageID)
		if err != nil {
			return fmt.Errorf("list nodewar entries: %w", err)
		}
		removed, ok := nodewar.Find(entries, input.UserID)
		if !ok {
			return nil
		}
		if _, err := tx.Nodewar.DeleteEntry(ctx, input.MessageID, input.UserID); err != nil {
			return fmt.Errorf("delete nodewar entry: %w", err)
		}
		result.Left = true

		remaining := make([]nodewar.Entry, 0, len(entries)-1)
		for _, e := range entries {
			if e.UserID != input.UserID {
				remaining = append(remaining, e)
			}
		}
		promoted, ok := nodewar.PromotionAfterLeave(remaining, removed, msg.MaxCap)
		if !ok {
			return nil
		}
		if err := tx.Nodewar.UpdateStatus(ctx, input.MessageID, promoted.UserID, promoted.Status); err != nil {
			return fmt.Errorf("promote %s: %w", promoted.UserID, err)
		}
		result.PromotedID = promoted.UserID
		return nil
	})
	if err != nil {
		return LeaveNodewarResult{}, err
	}

	if result.Left {
		slog.Info("roster_event", "event", "nodewar_left", "message_id", input.MessageID,
			"user_id", input.UserID, "promoted", result.PromotedID)
	}
	return result, nil
}

// UpdateNodewarCapInput carries a new capacity for a roster.
type UpdateNodewarCapInput struct {
	MessageID string
	MaxCap    int
}

// UpdateNodewarCapResult counts status flips in each direction.
type UpdateNodewarCapResult struct {
	Day         string
	PreviousCap int
	Demoted     int
	Promoted    int
}

// ExecuteUpdateNodewarCap re-partitions the roster by position under the new cap.
// PRE: MaxCap within nodewar.MinCap..nodewar.MaxCap
// POST: The first MaxCap entries by position are signed, the rest waitlisted
func ExecuteUpdateNodewarCap(ctx context.Context, input UpdateNodewarCapInput, deps NodewarDeps) (UpdateNodewarCapResult, error) {
	if err := nodewar.ValidateCap(input.MaxCap); err != nil {
		return UpdateNodewarCapResult{}, &ValidationError{Field: "max", Message: err.Error()}
	}

	var result UpdateNodewarCapResult
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		msg, err := tx.Nodewar.GetMessage(ctx, input.MessageID)
		if err != nil {
			return notFound(err, "nodewar message", input.MessageID)
		}
		entries, err := tx.Nodewar.ListEntries(ctx, input.MessageID)
		if err != nil {
			return fmt.Errorf("list nodewar entries: %w", err)
		}
		plan := nodewar.ApplyCap(entries, input.MaxCap)
		for _, e := range plan.Changed {
			if err := tx.Nodewar.UpdateStatus(ctx, e.MessageID, e.UserID, e.Status); err != nil {
				return fmt.Errorf("update status of %s: %w", e.UserID, err)
			}
		}
		previous := msg.MaxCap
		msg.MaxCap = input.MaxCap
		if err := tx.Nodewar.SaveMessage(ctx, msg); err != nil {
			return fmt.Errorf("save nodewar message: %w", err)
		}
		result = UpdateNodewarCapResult{Day: msg.Day, PreviousCap: previous, Demoted: plan.Demoted, Promoted: plan.Promoted}
		return nil
	})
	if err != nil {
		return UpdateNodewarCapResult{}, err
	}

	slog.Info("roster_event", "event", "nodewar_cap_updated", "message_id", input.MessageID,
		"max_cap", input.MaxCap, "demoted", result.Demoted, "promoted", result.Promoted)
	return result, nil
}

// ExecuteDeleteNodewarMessage removes a roster and all its entries.
// POST: ErrNotFound when the message is unknown
func ExecuteDeleteNodewarMessage(ctx context.Context, messageID string, deps NodewarDeps) error {
	err := deps.Roster.Do(ctx, func(tx roster.Tx) error {
		if _, err := tx.Nodewar.GetMessage(ctx, messageID); err != nil {
			return notFound(err, "nodewar message", messageID)
		}
		return tx.Nodewar.DeleteMessage(ctx, messageID)
	})
	if err != nil {
		return err
	}
	slog.Info("roster_event", "event", "nodewar_deleted", "message_id", messageID)
	return nil
}

// isNoRows reports whether err is a missing-row error from a store.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
