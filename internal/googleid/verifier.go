package googleid

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const issuer = "https://accounts.google.com"

// Token is a minimal interface for token payloads that allows extracting claims.
// It is satisfied by *oidc.IDToken and by test fakes.
type Token interface {
	Claims(v interface{}) error
}

// TokenVerifier checks a raw Google ID token before it is exchanged with the
// server. The server re-verifies the token itself; this is a fast local
// sanity check so an obviously bad token never costs a round trip.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Verifier validates Google ID tokens against the Google OIDC discovery document.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a verifier for tokens issued to the given OAuth client ID.
func NewVerifier(ctx context.Context, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover Google OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}

// Email pulls the email claim out of a verified token, "" when absent.
func Email(t Token) string {
	var claims struct {
		Email string `json:"email"`
	}
	if err := t.Claims(&claims); err != nil {
		return ""
	}
	return claims.Email
}
