package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"guildleague/internal/adapters/http/perf"
)

// Querier runs statements. *sql.DB, *sql.Tx and *TimedDB all satisfy it,
// so a store works the same inside and outside a roster transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLDB is a Querier that can open transactions.
type SQLDB interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ SQLDB   = (*sql.DB)(nil)
	_ SQLDB   = (*TimedDB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// perfKeyLen bounds how much of a statement becomes its perf key.
const perfKeyLen = 80

// TimedDB times every statement on the pool, warns about slow ones and
// feeds the admin perf page. Statements inside a *sql.Tx are not timed.
type TimedDB struct {
	db     *sql.DB
	perf   *perf.Collector // nil disables collection
	slowMs float64
}

// NewTimedDB wraps db. slowMs <= 0 falls back to 50ms.
func NewTimedDB(db *sql.DB, collector *perf.Collector, slowMs int) *TimedDB {
	if slowMs <= 0 {
		slowMs = 50
	}
	return &TimedDB{db: db, perf: collector, slowMs: float64(slowMs)}
}

func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (res sql.Result, err error) {
	defer t.observe("exec", query, time.Now(), &err)
	return t.db.ExecContext(ctx, query, args...)
}

func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (rows *sql.Rows, err error) {
	defer t.observe("query", query, time.Now(), &err)
	return t.db.QueryContext(ctx, query, args...)
}

// QueryRowContext times only the round trip; a Scan error is not seen here.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer t.observe("query_row", query, time.Now(), nil)
	return t.db.QueryRowContext(ctx, query, args...)
}

func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (tx *sql.Tx, err error) {
	defer t.observe("begin", "", time.Now(), &err)
	return t.db.BeginTx(ctx, opts)
}

func (t *TimedDB) Close() error { return t.db.Close() }

func (t *TimedDB) observe(op, query string, start time.Time, errp *error) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	key := statementKey(query)
	failed := errp != nil && *errp != nil

	switch {
	case ms >= t.slowMs:
		slog.Warn("slow_query", "op", op, "query", key, "duration_ms", ms, "failed", failed)
	case failed:
		slog.Debug("query_failed", "op", op, "query", key, "error", (*errp).Error())
	}
	if t.perf != nil {
		t.perf.Record(perf.Entry{Kind: perf.KindQuery, Path: strings.TrimSpace(op + " " + key), DurationMs: ms, Timestamp: start})
	}
}

// statementKey is the first line of a statement, cut to perfKeyLen.
func statementKey(query string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	if len(line) > perfKeyLen {
		line = line[:perfKeyLen]
	}
	return line
}
