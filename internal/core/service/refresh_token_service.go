package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
)

const (
	// refreshTokenBytes of entropy, hex encoded to a 128 character token.
	refreshTokenBytes = 64
	maxIssueAttempts  = 5
)

// RefreshTokenService implements ports.RefreshTokenManager.
//
// A token is issued, then either expires (still found, but rejected) or is
// deleted by rotation or logout, after which it is never found again.
type RefreshTokenService struct {
	repo   ports.RefreshTokenRepository
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
	random func([]byte) (int, error)
}

// NewRefreshTokenService returns a manager rotating tokens with the given ttl.
func NewRefreshTokenService(repo ports.RefreshTokenRepository, ttl time.Duration, logger zerolog.Logger) *RefreshTokenService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RefreshTokenService{repo: repo, ttl: ttl, logger: logger, now: time.Now, random: rand.Read}
}

// Issue mints and stores a token for subject, regenerating on collision.
func (s *RefreshTokenService) Issue(ctx context.Context, subject string, ttl time.Duration) (*domain.RefreshToken, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		value, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("issue refresh token: %w", err)
		}

		token := &domain.RefreshToken{
			Token:    value,
			Username: subject,
			Valid:    s.now().UTC().Add(ttl),
		}
		err = s.repo.Create(ctx, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, domain.ErrRefreshTokenConflict) {
			return nil, fmt.Errorf("issue refresh token: %w", err)
		}
		s.logger.Warn().Int("attempt", attempt).Msg("refresh token collision, regenerating")
	}
	return nil, fmt.Errorf("issue refresh token: %w after %d attempts", domain.ErrRefreshTokenConflict, maxIssueAttempts)
}

// Redeem validates token and rotates it. The presented token is single-use:
// of several concurrent redemptions only the one that deletes it succeeds.
func (s *RefreshTokenService) Redeem(ctx context.Context, token string) (*ports.Redemption, error) {
	if token == "" {
		return nil, domain.ErrRefreshTokenNotFound
	}

	stored, err := s.repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshTokenNotFound) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("redeem refresh token: %w", err)
	}
	if stored.ExpiredAt(s.now()) {
		return nil, domain.ErrRefreshTokenExpired
	}

	deleted, err := s.repo.Delete(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("redeem refresh token: %w", err)
	}
	if !deleted {
		return nil, domain.ErrRefreshTokenNotFound
	}

	next, err := s.Issue(ctx, stored.Username, s.ttl)
	if err != nil {
		return nil, err
	}
	return &ports.Redemption{Subject: stored.Username, Token: next}, nil
}

// Invalidate deletes token. Unknown or empty tokens are not an error.
func (s *RefreshTokenService) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.repo.Delete(ctx, token); err != nil {
		return fmt.Errorf("invalidate refresh token: %w", err)
	}
	return nil
}

// PurgeExpired removes tokens that are past validity at now.
func (s *RefreshTokenService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return n, nil
}

func (s *RefreshTokenService) generate() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := s.random(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
