package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
)

// AuthService implements login, silent refresh and logout.
type AuthService struct {
	accounts  ports.AccountRepository
	hasher    ports.PasswordHasher
	issuer    ports.AccessTokenIssuer
	refresh   ports.RefreshTokenManager
	listeners []ports.AuthenticationSuccessListener
	logger    zerolog.Logger
}

func NewAuthService(
	accounts ports.AccountRepository,
	hasher ports.PasswordHasher,
	issuer ports.AccessTokenIssuer,
	refresh ports.RefreshTokenManager,
	logger zerolog.Logger,
	listeners ...ports.AuthenticationSuccessListener,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		hasher:    hasher,
		issuer:    issuer,
		refresh:   refresh,
		listeners: listeners,
		logger:    logger,
	}
}

// Login checks the password and returns a signed access token together with
// a fresh refresh token. Unknown emails and wrong passwords are reported alike.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if account.PasswordHash == "" || !s.hasher.Verify(password, account.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	s.upgradeHash(ctx, account, password)

	refreshToken, err := s.refresh.Issue(ctx, account.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.authenticated(ctx, account, refreshToken)
}

// Refresh redeems refreshToken and returns a new access token and the rotated
// refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.AuthResult, error) {
	redemption, err := s.refresh.Redeem(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, redemption.Subject)
	if err != nil {
		s.revokeSuccessor(ctx, redemption.Token)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return s.authenticated(ctx, account, redemption.Token)
}

// Logout invalidates refreshToken. It succeeds for unknown tokens.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Invalidate(ctx, refreshToken)
}

// authenticated signs the access token and runs the success listeners once.
// The freshly issued refresh token is revoked again if either step fails.
func (s *AuthService) authenticated(ctx context.Context, account *domain.Account, refreshToken *domain.RefreshToken) (_ *ports.AuthResult, err error) {
	defer func() {
		if err != nil {
			s.revokeSuccessor(ctx, refreshToken)
		}
	}()

	token, err := s.issuer.Issue(account)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	envelope := &ports.AuthResult{
		Token:                 token,
		RefreshToken:          refreshToken.Token,
		RefreshTokenExpiresAt: refreshToken.Valid,
	}
	event := &ports.AuthenticationSuccessEvent{Account: account, Envelope: envelope}
	for _, l := range s.listeners {
		if err = l.OnAuthenticationSuccess(ctx, event); err != nil {
			return nil, err
		}
	}
	return envelope, nil
}

// revokeSuccessor invalidates a refresh token issued for an authentication
// that did not complete.
func (s *AuthService) revokeSuccessor(ctx context.Context, refreshToken *domain.RefreshToken) {
	if err := s.refresh.Invalidate(ctx, refreshToken.Token); err != nil {
		s.logger.Warn().Err(err).Msg("failed to revoke refresh token after aborted authentication")
	}
}

// upgradeHash re-hashes the password when the stored digest is outdated.
// Failures are logged and do not block the login.
func (s *AuthService) upgradeHash(ctx context.Context, account *domain.Account, password string) {
	if !s.hasher.NeedsRehash(account.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn().Err(err).Str("account_id", account.ID).Msg("password rehash failed")
		return
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		s.logger.Warn().Err(err).Str("account_id", account.ID).Msg("failed to store upgraded password hash")
		return
	}
	account.PasswordHash = hash
	s.logger.Info().Str("account_id", account.ID).Msg("password hash upgraded")
}
