package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
)

const (
	minPasswordLength = 12
	maxPasswordLength = 255
)

// birthdateLayouts are tried in order when parsing a birthdate.
var birthdateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

// AccountService implements ports.AccountRegistrar.
type AccountService struct {
	repo   ports.AccountRepository
	hasher ports.PasswordHasher
	logger zerolog.Logger
	now    func() time.Time
}

func NewAccountService(repo ports.AccountRepository, hasher ports.PasswordHasher, logger zerolog.Logger) *AccountService {
	return &AccountService{repo: repo, hasher: hasher, logger: logger, now: time.Now}
}

// Register validates input and creates the account. The plaintext password is
// cleared from input once hashed, whatever the outcome.
//
// The FindByEmail lookup only filters obvious duplicates; two concurrent
// registrations may both pass it, and the repository's unique constraint
// decides which one wins.
func (s *AccountService) Register(ctx context.Context, input *ports.RegisterInput) error {
	if err := requireFields(input); err != nil {
		return err
	}
	if err := checkPasswordPolicy(input.Password); err != nil {
		return err
	}
	email := domain.NormalizeEmail(input.Email)

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return &domain.AccountConflictError{Field: domain.FieldEmail, Value: email}
	case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
		return fmt.Errorf("register: lookup account: %w", err)
	}

	var birthdate *time.Time
	if strings.TrimSpace(input.Birthdate) != "" {
		bd, err := parseBirthdate(input.Birthdate)
		if err != nil {
			return err
		}
		birthdate = &bd
	}

	hash, err := s.hasher.Hash(input.Password)
	input.Password = ""
	if err != nil {
		return fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         input.Name,
		FirstName:    input.FirstName,
		Birthdate:    birthdate,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if phone := strings.TrimSpace(input.PhoneNumber); phone != "" {
		account.PhoneNumber = &phone
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			s.logger.Info().Str("account_id", account.ID).Msg("registration lost uniqueness race")
			return conflictFor(account, err)
		}
		return fmt.Errorf("register: create account: %w", err)
	}

	s.logger.Info().Str("account_id", account.ID).Msg("account registered")
	return nil
}

// conflictFor reports which unique field of account collided in the store.
// Stores that cannot tell are reported as an email conflict.
func conflictFor(account *domain.Account, err error) error {
	var ce *domain.AccountConflictError
	if errors.As(err, &ce) && ce.Field == domain.FieldPhoneNumber && account.PhoneNumber != nil {
		return &domain.AccountConflictError{Field: domain.FieldPhoneNumber, Value: *account.PhoneNumber}
	}
	return &domain.AccountConflictError{Field: domain.FieldEmail, Value: account.Email}
}

func requireFields(in *ports.RegisterInput) error {
	fields := []struct {
		name  string
		value string
	}{
		{"email", in.Email},
		{"password", in.Password},
		{"name", in.Name},
		{"firstName", in.FirstName},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return domain.NewValidationError(f.name, "%s must not be empty", f.name)
		}
	}
	return nil
}

func checkPasswordPolicy(password string) error {
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength || !hasLower || !hasUpper || !hasDigit || !hasSymbol {
		return domain.NewValidationError("password",
			"password must be %d-%d characters and contain at least one lowercase letter, one uppercase letter, one digit and one symbol",
			minPasswordLength, maxPasswordLength)
	}
	return nil
}

func parseBirthdate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.NewValidationError("birthdate", "birthdate has an invalid date format")
}
