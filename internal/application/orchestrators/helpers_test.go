package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"guildleague/internal/adapters/storage"
	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/domain/nodewar"
	"guildleague/internal/domain/signup"
)

var rosterTime = time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)

// ticker returns a clock that advances one second per call so join order is stable.
func ticker() func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return rosterTime.Add(time.Duration(n) * time.Second)
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// openRoster opens a migrated in-memory database and a runner over it.
func openRoster(t *testing.T) (*sql.DB, *roster.SQLiteRunner) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.MemoryPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, roster.NewSQLiteRunner(db)
}

func seedMeta(t *testing.T, db *sql.DB, metas ...signup.MessageMeta) {
	t.Helper()
	stores := roster.Bind(db)
	for i, m := range metas {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = rosterTime.Add(time.Duration(i) * time.Minute)
		}
		if err := stores.Messages.Save(context.Background(), m); err != nil {
			t.Fatalf("seed meta %s: %v", m.MessageID, err)
		}
	}
}

func seedNodewar(t *testing.T, db *sql.DB, messageID string, maxCap int) {
	t.Helper()
	msg := nodewar.Message{MessageID: messageID, GuildID: "g1", ChannelID: "c1", Day: "Sunday", MaxCap: maxCap, CreatedAt: rosterTime}
	if err := roster.Bind(db).Nodewar.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("seed nodewar %s: %v", messageID, err)
	}
}

func statCount(t *testing.T, db *sql.DB, guildID, userID string) int {
	t.Helper()
	st, err := roster.Bind(db).Stats.Get(context.Background(), guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0
	}
	if err != nil {
		t.Fatalf("get stat: %v", err)
	}
	return st.Count
}

func listSignups(t *testing.T, db *sql.DB, messageIDs ...string) []signup.Entry {
	t.Helper()
	entries, err := roster.Bind(db).Signups.ListByMessages(context.Background(), messageIDs)
	if err != nil {
		t.Fatalf("list signups: %v", err)
	}
	return entries
}
