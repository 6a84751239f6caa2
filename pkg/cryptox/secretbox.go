package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrDecryptionFailed is returned whenever a ciphertext blob cannot be
// decrypted: malformed field layout, undecodable hex, or a failed
// authentication tag (tampering or wrong key).
var ErrDecryptionFailed = errors.New("cryptox: decryption failed")

const gcmTagSize = 16

var hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Secretbox provides authenticated encryption for at-rest secrets such as
// camera connection URLs. Blobs are self-contained:
//
//	hex(nonce):hex(tag):hex(ciphertext)
//
// so decryption needs nothing beyond the blob and the configured key.
type Secretbox struct {
	aead cipher.AEAD
}

// NewSecretbox builds a Secretbox from the configured key material. A 64-char
// hex string is decoded to the raw 32-byte AES-256 key; any other string is
// run through SHA-256 to derive the key deterministically.
func NewSecretbox(keyMaterial string) (*Secretbox, error) {
	var key []byte
	if hexKeyPattern.MatchString(keyMaterial) {
		key, _ = hex.DecodeString(keyMaterial)
	} else {
		sum := sha256.Sum256([]byte(keyMaterial))
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create GCM: %w", err)
	}

	return &Secretbox{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce and returns the delimited
// blob. Two calls with the same plaintext never produce the same blob.
func (s *Secretbox) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext||tag; split them so the blob keeps the
	// three-field layout.
	sealed := s.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt opens a blob produced by Encrypt. Every failure mode collapses to
// ErrDecryptionFailed so callers cannot be tricked into using garbage output.
func (s *Secretbox) Decrypt(blob string) (string, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: invalid blob format", ErrDecryptionFailed)
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != s.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce", ErrDecryptionFailed)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != gcmTagSize {
		return "", fmt.Errorf("%w: bad tag", ErrDecryptionFailed)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrDecryptionFailed)
	}

	plaintext, err := s.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	return string(plaintext), nil
}
