package orchestrators

import (
	"context"
	"strings"
	"testing"

	participationStore "guildleague/internal/adapters/storage/participation"
)

func TestImportGameLog_ReplacesTable(t *testing.T) {
	db, _ := openRoster(t)
	store := participationStore.NewSQLiteStore(db)
	deps := ImportGameLogDeps{Store: store, Now: ticker()}
	ctx := context.Background()

	first := "PLAYER|in-scope guild|Kaelith|1|1\nPLAYER|in-scope guild|Morrow|1|1\n"
	if _, err := ExecuteImportGameLog(ctx, ImportGameLogInput{Log: strings.NewReader(first)}, deps); err != nil {
		t.Fatalf("first import: %v", err)
	}

	second := "PLAYER|in-scope guild|Kaelith|1|1\nPLAYER|in-scope guild|Kaelith|2|0\nPLAYER|broken\n"
	res, err := ExecuteImportGameLog(ctx, ImportGameLogInput{Log: strings.NewReader(second)}, deps)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if res.Counted != 2 || res.Malformed != 1 {
		t.Errorf("result = %+v, want 2 counted and 1 malformed", res)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].CharacterName != "Kaelith" || records[0].GamesPlayed != 2 {
		t.Errorf("records = %+v, want only Kaelith with 2", records)
	}
}
