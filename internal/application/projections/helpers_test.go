package projections

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/adapters/storage"
	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/domain/signup"
)

var baseTime = time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)

func openStores(t *testing.T) (*sql.DB, roster.Tx) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.MemoryPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, roster.Bind(db)
}

func bindTx(db *sql.DB) roster.Tx {
	return roster.Bind(db)
}

// addSignup inserts an entry joined n seconds after baseTime.
func addSignup(t *testing.T, tx roster.Tx, n int, e signup.Entry) {
	t.Helper()
	e.JoinedAt = baseTime.Add(time.Duration(n) * time.Second)
	if _, err := tx.Signups.Insert(context.Background(), e); err != nil {
		t.Fatalf("insert signup: %v", err)
	}
}

func addMeta(t *testing.T, tx roster.Tx, metas ...signup.MessageMeta) {
	t.Helper()
	for i, m := range metas {
		m.CreatedAt = baseTime.Add(time.Duration(i) * time.Minute)
		if err := tx.Messages.Save(context.Background(), m); err != nil {
			t.Fatalf("save meta: %v", err)
		}
	}
}

// fakeLayout returns a fixed layout, or ErrNotFound when nil.
type fakeLayout struct {
	layout *chat.Layout
	calls  int
}

func (f *fakeLayout) Layout(context.Context, string, string) (chat.Layout, error) {
	f.calls++
	if f.layout == nil {
		return chat.Layout{}, chat.ErrNotFound
	}
	return *f.layout, nil
}

// fakeNames resolves ids from a map; unknown ids fail.
type fakeNames map[string]string

func (f fakeNames) Get(_ context.Context, key string) (string, error) {
	if name, ok := f[key]; ok {
		return name, nil
	}
	return "", errors.New("unknown id")
}
