package ports

import (
	"context"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

// AccountRepository defines the persistence boundary for accounts.
// Create must enforce uniqueness of email (and of phone number when present)
// and report a violation as domain.ErrAccountExists.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
