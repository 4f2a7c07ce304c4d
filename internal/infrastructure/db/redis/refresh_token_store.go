package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

const keyPrefix = "refresh_token:"

// RefreshTokenStore keeps refresh tokens as JSON values.
// Key format: refresh_token:<token>
//
// Keys outlive their validity by the configured retention so a late
// presentation is still reported as expired rather than unknown. Redis then
// evicts them on its own, which makes DeleteExpired a no-op.
type RefreshTokenStore struct {
	client    redis.UniversalClient
	retention time.Duration
	now       func() time.Time
}

func NewRefreshTokenStore(client redis.UniversalClient, retention time.Duration) *RefreshTokenStore {
	if retention < 0 {
		retention = 0
	}
	return &RefreshTokenStore{client: client, retention: retention, now: time.Now}
}

func (s *RefreshTokenStore) Create(ctx context.Context, t *domain.RefreshToken) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}

	ttl := t.Valid.Sub(s.now()) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := s.client.SetNX(ctx, s.key(t.Token), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if !ok {
		return domain.ErrRefreshTokenConflict
	}
	return nil
}

func (s *RefreshTokenStore) Find(ctx context.Context, token string) (*domain.RefreshToken, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("load refresh token: %w", err)
	}

	var t domain.RefreshToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	return &t, nil
}

// Delete removes the key. DEL is atomic, so concurrent callers see at most
// one successful removal.
func (s *RefreshTokenStore) Delete(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("delete refresh token: %w", err)
	}
	return n == 1, nil
}

func (s *RefreshTokenStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *RefreshTokenStore) key(token string) string {
	return keyPrefix + token
}
