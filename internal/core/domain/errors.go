package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrAccountExists        = errors.New("account already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrMissingCredential    = errors.New("owner credential is missing")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenConflict = errors.New("refresh token already exists")
)

// ValidationError reports a single offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AccountConflictError names the unique account field that is already taken.
// errors.Is(err, ErrAccountExists) matches it.
type AccountConflictError struct {
	Field string
	Value string
}

func (e *AccountConflictError) Error() string {
	if e.Value == "" {
		return ErrAccountExists.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAccountExists, e.Value)
}

func (e *AccountConflictError) Is(target error) bool {
	return target == ErrAccountExists
}
