package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// DSNPragmas are appended to the SQLite path when opening the database.
// Write transactions take the lock up front so concurrent toggles queue on busy_timeout
// instead of failing on a deferred lock upgrade.
const DSNPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_txlock=immediate"

// MemoryPath opens a private in-memory database, used by tests and dry runs.
const MemoryPath = ":memory:"

// Open opens the SQLite database at path, verifies it and applies pending migrations.
// PRE: path is a file path or MemoryPath
// POST: Returns a migrated database; an in-memory database is pinned to one connection
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+DSNPragmas)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(8)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := MigrateDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// migrations are applied in order; index i moves the schema to version i+1.
// Append only. Never edit a migration that has shipped.
var migrations = []string{
	// 1: roster, stats and dashboard tables
	`
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS league_config (
		guild_id TEXT NOT NULL,
		day TEXT NOT NULL,
		ranges TEXT NOT NULL,
		PRIMARY KEY (guild_id, day)
	);

	CREATE TABLE IF NOT EXISTS message_meta (
		message_id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL DEFAULT '',
		channel_id TEXT NOT NULL DEFAULT '',
		day TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_message_meta_guild_day ON message_meta (guild_id, day);

	CREATE TABLE IF NOT EXISTS signup (
		message_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		slot_time TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		joined_at TEXT NOT NULL,
		PRIMARY KEY (message_id, user_id, slot_time)
	);
	CREATE INDEX IF NOT EXISTS idx_signup_user ON signup (user_id, slot_time);

	CREATE TABLE IF NOT EXISTS team_tag (
		message_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		slot_time TEXT NOT NULL,
		team TEXT NOT NULL CHECK (team IN ('A', 'B')),
		PRIMARY KEY (message_id, user_id, slot_time)
	);

	CREATE TABLE IF NOT EXISTS nodewar_message (
		message_id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL DEFAULT '',
		channel_id TEXT NOT NULL DEFAULT '',
		day TEXT NOT NULL,
		max_cap INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodewar_signup (
		message_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('signed', 'waitlist')),
		signed_at TEXT NOT NULL,
		PRIMARY KEY (message_id, user_id),
		FOREIGN KEY (message_id) REFERENCES nodewar_message (message_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS participation_stat (
		user_id TEXT NOT NULL,
		guild_id TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		last_seen TEXT NOT NULL DEFAULT '',
		custom_name TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, guild_id)
	);

	CREATE TABLE IF NOT EXISTS name_override (
		user_id TEXT NOT NULL,
		guild_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		PRIMARY KEY (user_id, guild_id)
	);

	CREATE TABLE IF NOT EXISTS game_participation (
		character_name TEXT PRIMARY KEY,
		games_played INTEGER NOT NULL,
		last_updated TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		target TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL,
		last_attempted_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox (status, created_at);
	`,
	// 2: declared slot layout on signup messages
	`
	ALTER TABLE message_meta ADD COLUMN team_mode TEXT NOT NULL DEFAULT '';
	ALTER TABLE message_meta ADD COLUMN slots TEXT NOT NULL DEFAULT '[]';
	`,
	// 3: dashboard audit trail
	`
	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		actor_name TEXT NOT NULL DEFAULT '',
		target TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_audit_event_at ON audit_event (at);
	`,
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return len(migrations)
}

// SchemaVersion reads the applied schema version (0 for a fresh database).
// PRE: db is a valid database connection
// POST: Returns the stored version or an error
func SchemaVersion(ctx context.Context, db Querier) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_version: %w", err)
	}
	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return version, nil
}

// MigrateDB applies pending migrations, each in its own transaction.
// PRE: db is a valid database connection with foreign keys enabled
// POST: Schema is at LatestSchemaVersion
func MigrateDB(ctx context.Context, db *sql.DB) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this binary (%d)", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		if err := applyMigration(ctx, db, version, migrations[i]); err != nil {
			return err
		}
		slog.Info("schema_migrated", "version", version)
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("apply migration %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("clear schema_version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	return tx.Commit()
}
