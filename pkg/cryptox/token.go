package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// SessionTokenSize is the entropy of an opaque refresh token in bytes.
const SessionTokenSize = 32

// NewSessionToken creates a cryptographically secure opaque token: 32 random
// bytes, hex-encoded (64 chars). It carries no embedded claims; the only way
// to use it is to present it back verbatim.
func NewSessionToken() (string, error) {
	buf := make([]byte, SessionTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// Stored instead of the raw value so a database leak does not expose usable
// refresh tokens; lookup hashes the presented value and compares.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
