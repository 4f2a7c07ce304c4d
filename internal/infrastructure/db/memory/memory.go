// Package memory provides process-local stores for development and tests.
// They enforce the same uniqueness and atomicity guarantees as the database
// adapters but lose all state on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

// AccountRepository is a map-backed ports.AccountRepository.
type AccountRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.Account
	byPhone map[string]string // phone -> email
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byEmail: make(map[string]*domain.Account),
		byPhone: make(map[string]string),
	}
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NormalizeEmail(account.Email)
	if _, exists := r.byEmail[key]; exists {
		return &domain.AccountConflictError{Field: domain.FieldEmail, Value: account.Email}
	}
	if account.PhoneNumber != nil {
		if _, exists := r.byPhone[*account.PhoneNumber]; exists {
			return &domain.AccountConflictError{Field: domain.FieldPhoneNumber, Value: *account.PhoneNumber}
		}
		r.byPhone[*account.PhoneNumber] = key
	}
	r.byEmail[key] = cloneAccount(account)
	return nil
}

func (r *AccountRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byEmail {
		if a.ID == id {
			a.PasswordHash = hash
			a.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

// Len returns the number of stored accounts.
func (r *AccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}

func cloneAccount(a *domain.Account) *domain.Account {
	clone := *a
	clone.ExtraRoles = append([]string(nil), a.ExtraRoles...)
	return &clone
}

// CourseRepository is a slice-backed ports.CourseRepository.
type CourseRepository struct {
	mu      sync.RWMutex
	courses []domain.Course
}

func NewCourseRepository() *CourseRepository {
	return &CourseRepository{}
}

func (r *CourseRepository) Create(_ context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *course
	clone.Responsibilities = append([]string(nil), course.Responsibilities...)
	clone.EraseOwnerCredential()
	r.courses = append(r.courses, clone)
	return nil
}

// ByOwner returns the courses owned by ownerID.
func (r *CourseRepository) ByOwner(ownerID string) []domain.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Course
	for _, c := range r.courses {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of stored courses.
func (r *CourseRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.courses)
}

// RefreshTokenRepository is a map-backed ports.RefreshTokenRepository.
type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]domain.RefreshToken
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{tokens: make(map[string]domain.RefreshToken)}
}

func (r *RefreshTokenRepository) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[token.Token]; exists {
		return domain.ErrRefreshTokenConflict
	}
	r.tokens[token.Token] = *token
	return nil
}

func (r *RefreshTokenRepository) Find(_ context.Context, token string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	return &t, nil
}

func (r *RefreshTokenRepository) Delete(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return false, nil
	}
	delete(r.tokens, token)
	return true, nil
}

func (r *RefreshTokenRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
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

// Len returns the number of stored refresh tokens.
func (r *RefreshTokenRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
