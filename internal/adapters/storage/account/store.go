package account

import (
	"context"

	domain "guildleague/internal/domain/account"
)

// Store persists dashboard accounts.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByUsername(ctx context.Context, username string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	Count(ctx context.Context) (int, error)
}
