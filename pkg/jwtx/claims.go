package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
)

// Claims are the access-token claims shared across the portal. The token is
// self-describing: every protected request and every realtime handshake is
// authorized from these fields alone, without a database round trip.
type Claims struct {
	jwt.RegisteredClaims

	// Username for the authenticated account.
	Username string `json:"username,omitempty"`

	// Role is one of domain's closed role set (admin, unit_admin, resident).
	Role string `json:"role,omitempty"`

	// UnitID is the neighborhood-unit affiliation, empty for admins.
	UnitID string `json:"unit_id,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an account.
func NewAccessClaims(subject, username, role, unitID string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
		Role:     role,
		UnitID:   unitID,
	}
}
