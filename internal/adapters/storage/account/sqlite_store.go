package account

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"guildleague/internal/adapters/storage"
	domain "guildleague/internal/domain/account"
)

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

const selectAccount = "SELECT id, username, password_hash, role, created_at, failed_logins, locked_until FROM account"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	entity, err := scanAccount(s.db.QueryRowContext(ctx, selectAccount+" WHERE id = ?", id).Scan)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByUsername retrieves an Account by login name, case-insensitively.
// PRE: username is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, selectAccount+" WHERE username = ? COLLATE NOCASE", strings.TrimSpace(username))
	entity, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	fields := []string{"id", "username", "password_hash", "role", "created_at", "failed_logins", "locked_until"}
	updates := []string{
		"username=excluded.username",
		"password_hash=excluded.password_hash",
		"role=excluded.role",
		"failed_logins=excluded.failed_logins",
		"locked_until=excluded.locked_until",
	}
	query := fmt.Sprintf(
		"INSERT INTO account (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", "),
		strings.Join(updates, ", "),
	)

	lockedUntil := ""
	if !entity.LockedUntil.IsZero() {
		lockedUntil = entity.LockedUntil.UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.Username,
		entity.PasswordHash,
		entity.Role,
		entity.CreatedAt.UTC().Format(timeLayout),
		entity.FailedLogins,
		lockedUntil,
	)
	return err
}

// Count returns the total number of accounts.
// PRE: none
// POST: Returns total account count
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt, lockedUntil string
	err := scan(
		&entity.ID,
		&entity.Username,
		&entity.PasswordHash,
		&entity.Role,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if lockedUntil != "" {
		entity.LockedUntil, _ = time.Parse(timeLayout, lockedUntil)
	}
	return entity, nil
}
