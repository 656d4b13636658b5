package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expiry extracts the exp claim from a JWT without verifying its signature.
// The client never validates tokens itself (the server does); the claim is
// only used to cap the locally tracked session window. Returns ok=false for
// opaque tokens or tokens without an exp claim.
func Expiry(raw string) (time.Time, bool) {
	parser := jwt.NewParser()
	tok, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ClampExpiry returns the earlier of the local window end and the token's own
// exp claim, so the client never trusts a credential longer than its issuer.
func ClampExpiry(raw string, localEnd time.Time) time.Time {
	if exp, ok := Expiry(raw); ok && exp.Before(localEnd) {
		return exp
	}
	return localEnd
}
