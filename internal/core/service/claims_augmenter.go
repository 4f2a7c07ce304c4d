package service

import (
	"context"
	"fmt"

	"github.com/eduplatform/identity-api/internal/core/ports"
	"github.com/eduplatform/identity-api/internal/pkg/security"
)

// TokenParser reads back a signed access token.
type TokenParser interface {
	Parse(token string) (*security.AccessClaims, error)
}

// ClaimsAugmenter copies identifying data and the token expiry into the
// authentication response so clients can schedule a refresh themselves.
type ClaimsAugmenter struct {
	parser TokenParser
}

func NewClaimsAugmenter(parser TokenParser) *ClaimsAugmenter {
	return &ClaimsAugmenter{parser: parser}
}

// OnAuthenticationSuccess implements ports.AuthenticationSuccessListener.
// The expiry is read from the signed token, never recomputed.
func (a *ClaimsAugmenter) OnAuthenticationSuccess(_ context.Context, event *ports.AuthenticationSuccessEvent) error {
	claims, err := a.parser.Parse(event.Envelope.Token)
	if err != nil {
		return fmt.Errorf("augment claims: %w", err)
	}
	if claims.ExpiresAt == nil {
		return fmt.Errorf("augment claims: access token has no expiry")
	}

	event.Envelope.Email = event.Account.Email
	event.Envelope.FirstName = event.Account.FirstName
	event.Envelope.TokenExp = claims.ExpiresAt.Unix()
	return nil
}
