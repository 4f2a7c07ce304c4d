package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

func newTestStore(t *testing.T, retention time.Duration) (*RefreshTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRefreshTokenStore(client, retention), mr
}

func TestRefreshTokenStore_CreateFind(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()
	valid := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)

	require.NoError(t, store.Create(ctx, &domain.RefreshToken{Token: "abc", Username: "a@x.com", Valid: valid}))

	got, err := store.Find(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Username)
	assert.True(t, got.Valid.Equal(valid))

	ttl := mr.TTL(keyPrefix + "abc")
	assert.Greater(t, ttl, time.Hour)
	assert.LessOrEqual(t, ttl, time.Hour+10*time.Minute)
}

func TestRefreshTokenStore_CreateConflict(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()
	tok := &domain.RefreshToken{Token: "dup", Username: "a@x.com", Valid: time.Now().Add(time.Hour)}

	require.NoError(t, store.Create(ctx, tok))
	assert.ErrorIs(t, store.Create(ctx, tok), domain.ErrRefreshTokenConflict)
}

func TestRefreshTokenStore_FindMissing(t *testing.T) {
	store, _ := newTestStore(t, 0)

	_, err := store.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRefreshTokenNotFound)
}

func TestRefreshTokenStore_Delete(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.RefreshToken{Token: "gone", Username: "a@x.com", Valid: time.Now().Add(time.Hour)}))

	deleted, err := store.Delete(ctx, "gone")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRefreshTokenStore_ExpiredKeptForRetention(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.RefreshToken{Token: "old", Username: "a@x.com", Valid: time.Now().Add(time.Minute)}))

	mr.FastForward(30 * time.Minute)
	got, err := store.Find(ctx, "old")
	require.NoError(t, err)
	assert.True(t, got.ExpiredAt(time.Now().Add(30*time.Minute)))

	mr.FastForward(2 * time.Hour)
	_, err = store.Find(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrRefreshTokenNotFound)

	n, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}
