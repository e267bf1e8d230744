// Package roster runs roster mutations as one SQLite transaction over the
// signup, message, nodewar and stats stores.
package roster

import (
	"context"
	"fmt"

	"guildleague/internal/adapters/storage"
	messageStore "guildleague/internal/adapters/storage/message"
	nodewarStore "guildleague/internal/adapters/storage/nodewar"
	signupStore "guildleague/internal/adapters/storage/signup"
	statsStore "guildleague/internal/adapters/storage/stats"
)

// Tx is the set of stores bound to one transaction.
type Tx struct {
	Signups  signupStore.Store
	Messages messageStore.Store
	Nodewar  nodewarStore.Store
	Stats    statsStore.Store
}

// Runner executes fn inside a transaction.
type Runner interface {
	Do(ctx context.Context, fn func(Tx) error) error
}

// SQLiteRunner implements Runner with database/sql transactions.
type SQLiteRunner struct {
	db storage.SQLDB
}

// NewSQLiteRunner creates a runner over db.
func NewSQLiteRunner(db storage.SQLDB) *SQLiteRunner {
	return &SQLiteRunner{db: db}
}

// Do runs fn with stores bound to a fresh transaction.
// PRE: fn does not retain the Tx after returning
// POST: Changes are committed when fn returns nil, rolled back otherwise
func (r *SQLiteRunner) Do(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(Bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster tx: %w", err)
	}
	return nil
}

// Bind returns stores that run every statement on q.
func Bind(q storage.Querier) Tx {
	return Tx{
		Signups:  signupStore.NewSQLiteStore(q),
		Messages: messageStore.NewSQLiteStore(q),
		Nodewar:  nodewarStore.NewSQLiteStore(q),
		Stats:    statsStore.NewSQLiteStore(q),
	}
}
