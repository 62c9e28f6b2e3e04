package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the locally decoded, unverified assertions carried inside a bearer token.
// A Claims value only exists for tokens that passed the local expiry check.
type Claims struct {
	Subject string
	Email   string
	Role    string

	// ExpiresAt is zero when the token carries no exp claim.
	ExpiresAt time.Time
}

// DecodeClaims parses the payload segment of a compact token without checking its signature.
// It fails closed: malformed structure, bad encoding, bad JSON, a missing subject and an
// expired token all report ok=false with no further detail.
func DecodeClaims(token string, now time.Time) (Claims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, false
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return Claims{}, false
	}

	var mc jwt.MapClaims
	if err := json.Unmarshal(payload, &mc); err != nil || mc == nil {
		return Claims{}, false
	}

	sub, err := mc.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return Claims{}, false
	}

	// A present but non-numeric exp cannot be checked, so it is rejected.
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, false
	}

	c := Claims{
		Subject: sub,
		Email:   stringClaim(mc, "email"),
		Role:    stringClaim(mc, "role"),
	}
	if exp != nil {
		if exp.Unix() < now.Unix() {
			return Claims{}, false
		}
		c.ExpiresAt = exp.Time
	}
	return c, true
}

// decodeSegment accepts both the unpadded URL alphabet used by JWTs and padded/std variants
// that some issuers emit.
func decodeSegment(seg string) ([]byte, error) {
	if seg == "" {
		return nil, base64.CorruptInputError(0)
	}
	if b, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(seg)
}

func stringClaim(mc jwt.MapClaims, key string) string {
	if s, ok := mc[key].(string); ok {
		return s
	}
	return ""
}
