package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/pkg/security"
)

var (
	testLogger = zerolog.Nop()
	testHasher = security.NewHasher(security.HashParams{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})
)

type stubAccountRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.Account
	createErr error // if set, Create returns this error
	findErr   error // if set, FindByEmail returns this error
	updates   int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{users: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.users[a.Email]; exists {
		return domain.ErrAccountExists
	}
	r.users[a.Email] = cloneAccount(a)
	return nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.users[email]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.users {
		if a.ID == id {
			a.PasswordHash = hash
			r.updates++
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

type stubCourseRepo struct {
	created []*domain.Course
	err     error
}

func (r *stubCourseRepo) Create(_ context.Context, c *domain.Course) error {
	if r.err != nil {
		return r.err
	}
	clone := *c
	r.created = append(r.created, &clone)
	return nil
}

type stubRefreshRepo struct {
	mu        sync.Mutex
	tokens    map[string]domain.RefreshToken
	conflicts int   // number of Create calls to reject as collisions
	createErr error // if set, Create returns this error
	deleteErr error
	// deleteErrAfter lets that many Delete calls succeed before deleteErr applies.
	deleteErrAfter int
}

func newStubRefreshRepo() *stubRefreshRepo {
	return &stubRefreshRepo{tokens: make(map[string]domain.RefreshToken)}
}

func (r *stubRefreshRepo) Create(_ context.Context, t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrRefreshTokenConflict
	}
	if _, ok := r.tokens[t.Token]; ok {
		return domain.ErrRefreshTokenConflict
	}
	r.tokens[t.Token] = *t
	return nil
}

func (r *stubRefreshRepo) Find(_ context.Context, token string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	return &t, nil
}

func (r *stubRefreshRepo) Delete(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		if r.deleteErrAfter == 0 {
			return false, r.deleteErr
		}
		r.deleteErrAfter--
	}
	if _, ok := r.tokens[token]; !ok {
		return false, nil
	}
	delete(r.tokens, token)
	return true, nil
}

func (r *stubRefreshRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.ExpiredAt(before) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *stubRefreshRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
