package domain

import (
	"strings"
	"time"
)

// RoleUser is granted to every account. It is never stored.
const RoleUser = "ROLE_USER"

// Account field names used when reporting uniqueness conflicts.
const (
	FieldEmail       = "email"
	FieldPhoneNumber = "phoneNumber"
)

// NormalizeEmail returns the canonical form under which emails are stored and
// looked up. Emails compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Account models a registered identity on the platform.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PhoneNumber  *string    `json:"phoneNumber,omitempty"`
	Name         string     `json:"name"`
	FirstName    string     `json:"firstName"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`
	PasswordHash string     `json:"-"`
	ExtraRoles   []string   `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Roles returns the stored roles plus RoleUser, without duplicates.
func (a *Account) Roles() []string {
	roles := make([]string, 0, len(a.ExtraRoles)+1)
	seen := make(map[string]struct{}, len(a.ExtraRoles)+1)
	for _, r := range append(append([]string(nil), a.ExtraRoles...), RoleUser) {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	return roles
}

// HasRole reports whether role is part of Roles.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles() {
		if r == role {
			return true
		}
	}
	return false
}
