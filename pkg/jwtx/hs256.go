package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Signer can mint signed access tokens.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a token string and gives you back the claims if it's
// legit. Callers must treat every returned error as "unauthenticated" and
// never surface the failure subtype to the end client.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies tokens with a shared symmetric secret.
// It implements both Signer and Verifier.
type HS256 struct {
	secret []byte
}

// NewHS256 wraps the shared secret. The secret length is enforced at config
// load time (>= 32 bytes), not here.
func NewHS256(secret []byte) *HS256 {
	return &HS256{secret: secret}
}

func (h *HS256) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(h.secret)
}

// Verify parses and validates the token. Signature mismatch, expiry, and
// malformed structure all fail; the distinction only matters for server logs.
func (h *HS256) Verify(raw string) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAlgMismatch
		}
		return h.secret, nil
	})
	switch {
	case err == nil && tok.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSig
	default:
		return Claims{}, ErrMalformed
	}
}
