package orchestrators

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"guildleague/internal/domain/participation"
)

// ParticipationStoreForImport is the store surface needed by ImportGameLog.
type ParticipationStoreForImport interface {
	ReplaceAll(ctx context.Context, records []participation.GameParticipation) error
}

// ImportGameLogInput carries the uploaded log and the guild scope to count.
type ImportGameLogInput struct {
	Log   io.Reader
	Scope string // defaults to participation.DefaultScope
}

// ImportGameLogDeps holds dependencies for ImportGameLog.
type ImportGameLogDeps struct {
	Store ParticipationStoreForImport
	Now   func() time.Time
}

// ExecuteImportGameLog replaces the game participation table with counts from the log.
// PRE: Log is readable
// POST: Table holds exactly the parsed records; malformed lines are counted, not stored
func ExecuteImportGameLog(ctx context.Context, input ImportGameLogInput, deps ImportGameLogDeps) (participation.ParseResult, error) {
	scope := input.Scope
	if scope == "" {
		scope = participation.DefaultScope
	}
	parsed, err := participation.ParseLog(input.Log, scope, deps.Now())
	if err != nil {
		return participation.ParseResult{}, &ValidationError{Field: "log", Message: err.Error()}
	}
	if err := deps.Store.ReplaceAll(ctx, parsed.Records); err != nil {
		return participation.ParseResult{}, fmt.Errorf("replace game participation: %w", err)
	}

	slog.Info("import_event", "event", "game_log_imported", "scope", scope,
		"lines", parsed.Lines, "counted", parsed.Counted, "malformed", parsed.Malformed,
		"characters", len(parsed.Records))
	return parsed, nil
}
