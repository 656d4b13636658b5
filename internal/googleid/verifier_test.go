package googleid

import (
	"context"
	"encoding/base64"
	"testing"
)

func fakeIDToken(payload string) string {
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"none"}`)) + "." + enc([]byte(payload)) + "."
}

func TestInsecureVerifierExtractsEmail(t *testing.T) {
	v := NewInsecureVerifier()
	tok, err := v.Verify(context.Background(), fakeIDToken(`{"email":"a@b.com","sub":"g-123"}`))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if got := Email(tok); got != "a@b.com" {
		t.Fatalf("Email() = %q, want a@b.com", got)
	}
}

func TestInsecureVerifierRejectsGarbage(t *testing.T) {
	v := NewInsecureVerifier()
	if _, err := v.Verify(context.Background(), "not-a-token"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
	if _, err := v.Verify(context.Background(), "a.!!!.c"); err == nil {
		t.Fatalf("expected error for undecodable payload")
	}
}
