package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
	"github.com/eduplatform/identity-api/internal/pkg/security"
)

const testSecret = "secret"

type failingIssuer struct{}

func (failingIssuer) Issue(*domain.Account) (string, error) {
	return "", errors.New("signing key unavailable")
}

type failingListener struct{ calls int }

func (l *failingListener) OnAuthenticationSuccess(context.Context, *ports.AuthenticationSuccessEvent) error {
	l.calls++
	return errors.New("listener failed")
}

type countingListener struct{ calls int }

func (l *countingListener) OnAuthenticationSuccess(context.Context, *ports.AuthenticationSuccessEvent) error {
	l.calls++
	return nil
}

func seedAccount(t *testing.T, repo *stubAccountRepo, email, password string) *domain.Account {
	t.Helper()
	hash, err := testHasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	account := &domain.Account{ID: "acc-" + email, Email: email, Name: "Doe", FirstName: "John", PasswordHash: hash}
	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return account
}

func newTestAuthService(accounts *stubAccountRepo, tokens *stubRefreshRepo, listeners ...ports.AuthenticationSuccessListener) *AuthService {
	signer := security.NewTokenSigner(testSecret, time.Hour)
	refresh := NewRefreshTokenService(tokens, 24*time.Hour, testLogger)
	return NewAuthService(accounts, testHasher, signer, refresh, testLogger, listeners...)
}

func TestAuthService_Login_Success(t *testing.T) {
	accounts := newStubAccountRepo()
	tokens := newStubRefreshRepo()
	seedAccount(t, accounts, "carol@example.com", "Abcdef123!@#x")
	svc := newTestAuthService(accounts, tokens)

	res, err := svc.Login(context.Background(), "carol@example.com", "Abcdef123!@#x")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token, got empty")
	}
	if len(res.RefreshToken) != 128 {
		t.Fatalf("expected 128 character refresh token, got %d", len(res.RefreshToken))
	}
	if tokens.len() != 1 {
		t.Fatalf("expected one stored refresh token, got %d", tokens.len())
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(res.Token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["username"] != "carol@example.com" {
		t.Fatalf("unexpected username claim: %v", claims["username"])
	}
	roles, _ := claims["roles"].([]interface{})
	if len(roles) != 1 || roles[0] != domain.RoleUser {
		t.Fatalf("expected [%s], got %v", domain.RoleUser, claims["roles"])
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	accounts := newStubAccountRepo()
	tokens := newStubRefreshRepo()
	seedAccount(t, accounts, "dave@example.com", "Abcdef123!@#x")
	svc := newTestAuthService(accounts, tokens)

	if _, err := svc.Login(context.Background(), "dave@example.com", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if tokens.len() != 0 {
		t.Fatalf("no refresh token should be issued")
	}
}

func TestAuthService_Login_UnknownEmailLooksLikeBadPassword(t *testing.T) {
	svc := newTestAuthService(newStubAccountRepo(), newStubRefreshRepo())

	if _, err := svc.Login(context.Background(), "ghost@example.com", "pass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}

func TestAuthService_Login_UpgradesLegacyHash(t *testing.T) {
	accounts := newStubAccountRepo()
	legacy, err := bcrypt.GenerateFromPassword([]byte("Abcdef123!@#x"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	_ = accounts.Create(context.Background(), &domain.Account{ID: "legacy", Email: "old@example.com", PasswordHash: string(legacy)})
	svc := newTestAuthService(accounts, newStubRefreshRepo())

	if _, err := svc.Login(context.Background(), "old@example.com", "Abcdef123!@#x"); err != nil {
		t.Fatalf("login with legacy hash failed: %v", err)
	}
	if accounts.updates != 1 {
		t.Fatalf("expected one hash upgrade, got %d", accounts.updates)
	}
	upgraded := accounts.users["old@example.com"].PasswordHash
	if !strings.HasPrefix(upgraded, "$argon2id$") {
		t.Fatalf("expected argon2id digest, got %q", upgraded)
	}

	if _, err := svc.Login(context.Background(), "old@example.com", "Abcdef123!@#x"); err != nil {
		t.Fatalf("login after upgrade failed: %v", err)
	}
	if accounts.updates != 1 {
		t.Fatalf("current digest must not be rehashed again")
	}
}

func TestAuthService_Login_ListenerRunsOnce(t *testing.T) {
	accounts := newStubAccountRepo()
	seedAccount(t, accounts, "erin@example.com", "Abcdef123!@#x")
	listener := &countingListener{}
	svc := newTestAuthService(accounts, newStubRefreshRepo(), listener)

	if _, err := svc.Login(context.Background(), "erin@example.com", "Abcdef123!@#x"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if listener.calls != 1 {
		t.Fatalf("expected listener to run once, ran %d times", listener.calls)
	}
}

func TestAuthService_Login_FailureRevokesRefreshToken(t *testing.T) {
	accounts := newStubAccountRepo()
	seedAccount(t, accounts, "fay@example.com", "Abcdef123!@#x")

	tokens := newStubRefreshRepo()
	listener := &failingListener{}
	svc := newTestAuthService(accounts, tokens, listener)
	if _, err := svc.Login(context.Background(), "fay@example.com", "Abcdef123!@#x"); err == nil {
		t.Fatalf("expected listener error")
	}
	if tokens.len() != 0 {
		t.Fatalf("refresh token must be revoked when a listener fails")
	}

	tokens = newStubRefreshRepo()
	refresh := NewRefreshTokenService(tokens, time.Hour, testLogger)
	svc = NewAuthService(accounts, testHasher, failingIssuer{}, refresh, testLogger)
	if _, err := svc.Login(context.Background(), "fay@example.com", "Abcdef123!@#x"); err == nil {
		t.Fatalf("expected signing error")
	}
	if tokens.len() != 0 {
		t.Fatalf("refresh token must be revoked when signing fails")
	}
}

func TestAuthService_Refresh_Rotates(t *testing.T) {
	accounts := newStubAccountRepo()
	tokens := newStubRefreshRepo()
	seedAccount(t, accounts, "gus@example.com", "Abcdef123!@#x")
	listener := &countingListener{}
	svc := newTestAuthService(accounts, tokens, listener)

	first, err := svc.Login(context.Background(), "gus@example.com", "Abcdef123!@#x")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if second.Token == "" || second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected a rotated refresh token")
	}
	if listener.calls != 2 {
		t.Fatalf("listener should run on login and refresh, ran %d times", listener.calls)
	}
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, domain.ErrRefreshTokenNotFound) {
		t.Fatalf("replayed token: expected ErrRefreshTokenNotFound, got %v", err)
	}
	if tokens.len() != 1 {
		t.Fatalf("expected only the successor to remain, got %d", tokens.len())
	}
}

func TestAuthService_Refresh_DeletedAccount(t *testing.T) {
	accounts := newStubAccountRepo()
	tokens := newStubRefreshRepo()
	seedAccount(t, accounts, "hal@example.com", "Abcdef123!@#x")
	svc := newTestAuthService(accounts, tokens)

	res, err := svc.Login(context.Background(), "hal@example.com", "Abcdef123!@#x")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	delete(accounts.users, "hal@example.com")

	if _, err := svc.Refresh(context.Background(), res.RefreshToken); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if tokens.len() != 0 {
		t.Fatalf("no token should survive for a deleted account")
	}
}

func TestAuthService_Logout(t *testing.T) {
	accounts := newStubAccountRepo()
	tokens := newStubRefreshRepo()
	seedAccount(t, accounts, "ivy@example.com", "Abcdef123!@#x")
	svc := newTestAuthService(accounts, tokens)

	res, err := svc.Login(context.Background(), "ivy@example.com", "Abcdef123!@#x")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := svc.Logout(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := svc.Logout(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("second logout should succeed, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), res.RefreshToken); !errors.Is(err, domain.ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound after logout, got %v", err)
	}
}

func TestAuthService_Login_IgnoresEmailCase(t *testing.T) {
	accounts := newStubAccountRepo()
	seedAccount(t, accounts, "kim@example.com", "Abcdef123!@#x")
	svc := newTestAuthService(accounts, newStubRefreshRepo())

	if _, err := svc.Login(context.Background(), " Kim@Example.COM", "Abcdef123!@#x"); err != nil {
		t.Fatalf("login with mixed-case email failed: %v", err)
	}
}

func TestAuthService_Refresh_StoreFailureRevokesSuccessor(t *testing.T) {
	accounts := newStubAccountRepo()
	tokens := newStubRefreshRepo()
	seedAccount(t, accounts, "lea@example.com", "Abcdef123!@#x")
	svc := newTestAuthService(accounts, tokens)

	res, err := svc.Login(context.Background(), "lea@example.com", "Abcdef123!@#x")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	accounts.findErr = errors.New("connection reset")

	_, err = svc.Refresh(context.Background(), res.RefreshToken)
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected a store error, got %v", err)
	}
	if tokens.len() != 0 {
		t.Fatalf("successor token must be revoked, %d left", tokens.len())
	}
}

func TestAuthService_Refresh_LogsFailedRevocation(t *testing.T) {
	accounts := newStubAccountRepo()
	tokens := newStubRefreshRepo()
	seedAccount(t, accounts, "max@example.com", "Abcdef123!@#x")

	var buf bytes.Buffer
	signer := security.NewTokenSigner(testSecret, time.Hour)
	refresh := NewRefreshTokenService(tokens, 24*time.Hour, testLogger)
	svc := NewAuthService(accounts, testHasher, signer, refresh, zerolog.New(&buf))

	res, err := svc.Login(context.Background(), "max@example.com", "Abcdef123!@#x")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	delete(accounts.users, "max@example.com")
	// Redeem's delete succeeds, the revocation of the successor fails.
	tokens.deleteErr = errors.New("store unavailable")
	tokens.deleteErrAfter = 1

	if _, err := svc.Refresh(context.Background(), res.RefreshToken); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if !strings.Contains(buf.String(), "failed to revoke refresh token") {
		t.Fatalf("revocation failure not logged: %s", buf.String())
	}
}
