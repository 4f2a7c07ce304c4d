package ports

import (
	"context"
	"time"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

// PasswordHasher hashes and verifies plaintext secrets. Digests describe their
// own algorithm and parameters.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
	NeedsRehash(digest string) bool
}

// AccessTokenIssuer signs access tokens for an account.
type AccessTokenIssuer interface {
	Issue(account *domain.Account) (string, error)
}

// AuthResult is the response envelope of a successful authentication.
// Listeners may only add to it; Token is never rewritten after signing.
type AuthResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	TokenExp     int64  `json:"token_exp,omitempty"`

	RefreshTokenExpiresAt time.Time `json:"-"`
}

// AuthenticationSuccessEvent is handed to listeners once per successful
// authentication, after the access token is signed.
type AuthenticationSuccessEvent struct {
	Account  *domain.Account
	Envelope *AuthResult
}

// AuthenticationSuccessListener reacts to an AuthenticationSuccessEvent.
// A returned error aborts the authentication.
type AuthenticationSuccessListener interface {
	OnAuthenticationSuccess(ctx context.Context, event *AuthenticationSuccessEvent) error
}

// Redemption is the outcome of a successful refresh token redemption.
type Redemption struct {
	Subject string
	Token   *domain.RefreshToken
}

// RefreshTokenManager issues, rotates and revokes refresh tokens.
type RefreshTokenManager interface {
	Issue(ctx context.Context, subject string, ttl time.Duration) (*domain.RefreshToken, error)
	Redeem(ctx context.Context, token string) (*Redemption, error)
	Invalidate(ctx context.Context, token string) error
}

// AuthService covers login, silent refresh and logout.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
}
