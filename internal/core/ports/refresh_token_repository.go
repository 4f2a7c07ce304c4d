package ports

import (
	"context"
	"time"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

// RefreshTokenRepository stores refresh tokens keyed by their exact value.
type RefreshTokenRepository interface {
	// Create stores a new token. A value already present yields
	// domain.ErrRefreshTokenConflict.
	Create(ctx context.Context, token *domain.RefreshToken) error

	// Find returns the stored record or domain.ErrRefreshTokenNotFound.
	// Expired records are still returned.
	Find(ctx context.Context, token string) (*domain.RefreshToken, error)

	// Delete removes the token atomically and reports whether this call
	// removed it. Only one of several concurrent callers observes true.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes every token whose validity is not after before.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
