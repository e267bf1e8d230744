// Package account models the logins that may open the admin dashboard.
package account

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	MaxUsernameLength = 64
	MinPasswordLength = 8

	// MaxFailedLogins wrong passwords in a row lock the account for LockoutDuration.
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute

	bcryptCost = 12
)

// Admins may change rosters and stats; viewers only read the dashboard.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

var ValidRoles = []string{RoleAdmin, RoleViewer}

var (
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrUsernameTooLong  = fmt.Errorf("username cannot exceed %d characters", MaxUsernameLength)
	ErrInvalidRole      = fmt.Errorf("role must be one of: %s", strings.Join(ValidRoles, ", "))
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrWrongPassword    = errors.New("incorrect password")
)

// Account is a dashboard login. Usernames compare case-insensitively in storage.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// Validate checks username and role. The password is checked by SetPassword.
func (a *Account) Validate() error {
	switch {
	case strings.TrimSpace(a.Username) == "":
		return ErrEmptyUsername
	case len(a.Username) > MaxUsernameLength:
		return ErrUsernameTooLong
	case !slices.Contains(ValidRoles, a.Role):
		return ErrInvalidRole
	}
	return nil
}

// SetPassword replaces the stored hash.
// PRE: plaintext has at least MinPasswordLength bytes
// POST: PasswordHash is a bcrypt hash of plaintext
func (a *Account) SetPassword(plaintext string) error {
	switch {
	case plaintext == "":
		return ErrEmptyPassword
	case len(plaintext) < MinPasswordLength:
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword returns ErrWrongPassword unless plaintext matches the stored hash.
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)) != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked reports whether logins are refused at now.
func (a *Account) IsLocked(now time.Time) bool {
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin counts a wrong password.
// POST: reaching MaxFailedLogins locks the account until now+LockoutDuration
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the counter and any lock.
func (a *Account) ResetFailedLogins() {
	a.FailedLogins, a.LockedUntil = 0, time.Time{}
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }
