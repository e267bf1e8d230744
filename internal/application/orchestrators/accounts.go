package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"guildleague/internal/domain/account"
)

// AccountStore is the account storage the login and account orchestrators share.
type AccountStore interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
	ErrUsernameTaken      = errors.New("an account with this username already exists")
)

type LoginInput struct {
	Username string
	Password string
}

// LoginResult is what a dashboard session is opened with.
type LoginResult struct {
	AccountID string
	Username  string
	Role      string
}

type LoginDeps struct {
	AccountStore AccountStore
	Now          func() time.Time
}

// ExecuteLogin checks dashboard credentials and keeps the lockout counter current.
// PRE: none; blank input is rejected as invalid credentials
// POST: a wrong password counts toward lockout, a right one clears it
// INVARIANT: a locked account is refused before its password is compared
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := deps.Now()
	log := slog.With("username", username)

	acct, err := deps.AccountStore.GetByUsername(ctx, username)
	switch {
	case err != nil:
		log.Info("auth_event", "event", "login_failed", "reason", "unknown_user")
		return LoginResult{}, ErrInvalidCredentials
	case acct.IsLocked(now):
		log.Info("auth_event", "event", "login_blocked", "until", acct.LockedUntil)
		return LoginResult{}, ErrAccountLocked
	}

	pwErr := acct.CheckPassword(input.Password)
	dirty := pwErr != nil || acct.FailedLogins > 0 || !acct.LockedUntil.IsZero()
	if pwErr != nil {
		acct.RecordFailedLogin(now)
	} else {
		acct.ResetFailedLogins()
	}
	if dirty {
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			log.Error("auth_event", "event", "lockout_save_failed", "error", err.Error())
		}
	}
	if pwErr != nil {
		log.Info("auth_event", "event", "login_failed", "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		return LoginResult{}, ErrInvalidCredentials
	}

	log.Info("auth_event", "event", "login_success", "role", acct.Role)
	return LoginResult{AccountID: acct.ID, Username: acct.Username, Role: acct.Role}, nil
}

type CreateAccountInput struct {
	Username string
	Password string
	Role     string
}

type CreateAccountDeps struct {
	AccountStore AccountStore
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteCreateAccount adds a dashboard account and returns its id.
// PRE: role is admin or viewer; password has account.MinPasswordLength characters
// POST: the stored account carries a bcrypt hash, never the password
// INVARIANT: usernames are unique ignoring case
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	acct := account.Account{
		ID:        deps.GenerateID(),
		Username:  strings.TrimSpace(input.Username),
		Role:      input.Role,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return "", &ValidationError{Field: "account", Message: err.Error()}
	}
	switch err := acct.SetPassword(input.Password); {
	case errors.Is(err, account.ErrEmptyPassword), errors.Is(err, account.ErrPasswordTooShort):
		return "", &ValidationError{Field: "password", Message: err.Error()}
	case err != nil:
		return "", err
	}
	if _, err := deps.AccountStore.GetByUsername(ctx, acct.Username); err == nil {
		return "", ErrUsernameTaken
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}
	slog.Info("auth_event", "event", "account_created", "username", acct.Username, "role", acct.Role)
	return acct.ID, nil
}

// ExecuteSeedAdmin creates the first admin on an empty account table.
// A blank password skips seeding.
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, username, password string) error {
	n, err := deps.AccountStore.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	if password == "" {
		slog.Warn("auth_event", "event", "admin_seed_skipped", "reason", "no_password")
		return nil
	}
	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{Username: username, Password: password, Role: account.RoleAdmin}, deps); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "admin_seeded", "username", username)
	return nil
}
