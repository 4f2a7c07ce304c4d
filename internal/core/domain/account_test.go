package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestAccount_RolesAlwaysIncludeUser(t *testing.T) {
	a := &Account{}
	if got := a.Roles(); !reflect.DeepEqual(got, []string{RoleUser}) {
		t.Fatalf("expected [%s], got %v", RoleUser, got)
	}

	a.ExtraRoles = []string{"ROLE_ADMIN", RoleUser, "ROLE_ADMIN"}
	if got := a.Roles(); !reflect.DeepEqual(got, []string{"ROLE_ADMIN", RoleUser}) {
		t.Fatalf("unexpected roles: %v", got)
	}
	if !a.HasRole(RoleUser) || !a.HasRole("ROLE_ADMIN") || a.HasRole("ROLE_TEACHER") {
		t.Fatalf("HasRole mismatch for %v", a.Roles())
	}
}

func TestAccount_RolesDoesNotMutateStoredRoles(t *testing.T) {
	a := &Account{ExtraRoles: make([]string, 1, 4)}
	a.ExtraRoles[0] = "ROLE_ADMIN"
	_ = a.Roles()
	if len(a.ExtraRoles) != 1 {
		t.Fatalf("stored roles changed: %v", a.ExtraRoles)
	}
}

func TestAccount_JSONOmitsPasswordHash(t *testing.T) {
	a := &Account{Email: "a@x.com", PasswordHash: "$argon2id$secret"}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "argon2id") {
		t.Fatalf("password hash leaked: %s", b)
	}
}

func TestCourse_OwnerCredentialIsNeverSerialized(t *testing.T) {
	c := &Course{ID: "c1", InstitutionName: "Sorbonne", StartDate: time.Now()}
	c.AttachOwnerCredential("a@x.com")
	if c.OwnerCredential() != "a@x.com" {
		t.Fatalf("credential not attached")
	}

	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "a@x.com") {
		t.Fatalf("credential leaked before erase: %s", b)
	}

	c.EraseOwnerCredential()
	if c.OwnerCredential() != "" {
		t.Fatalf("credential not erased")
	}
}

func TestRefreshToken_ExpiredAt(t *testing.T) {
	now := time.Now()
	rt := &RefreshToken{Valid: now.Add(time.Minute)}
	if rt.ExpiredAt(now) {
		t.Fatalf("token should still be valid")
	}
	if !rt.ExpiredAt(now.Add(time.Minute)) {
		t.Fatalf("token should be expired at its validity instant")
	}
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := error(NewValidationError("email", "%s is required", "email"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ValidationError to match ErrValidation")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "email" || ve.Error() != "email is required" {
		t.Fatalf("unexpected validation error: %#v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"a@x.com":           "a@x.com",
		"  A@X.Com ":        "a@x.com",
		"Alice@Example.ORG": "alice@example.org",
		"":                  "",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAccountConflictError_MatchesErrAccountExists(t *testing.T) {
	err := fmt.Errorf("register: %w", &AccountConflictError{Field: FieldPhoneNumber, Value: "+33600000000"})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected errors.Is to match ErrAccountExists")
	}
	var ce *AccountConflictError
	if !errors.As(err, &ce) || ce.Field != FieldPhoneNumber {
		t.Fatalf("expected phoneNumber conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "+33600000000") {
		t.Fatalf("message should name the value, got %q", err.Error())
	}
	if (&AccountConflictError{Field: FieldEmail}).Error() != ErrAccountExists.Error() {
		t.Fatalf("empty value should fall back to the sentinel message")
	}
}
