package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	passwords := []string{
		"Secret123!",
		"",
		"pässwörd with ünïcode",
		strings.Repeat("x", 200),
	}

	for _, p := range passwords {
		hash, err := HashPassword(p)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
		require.NoError(t, VerifyPassword(p, hash))
	}
}

func TestVerifyPasswordRejectsMismatch(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	require.Error(t, VerifyPassword("battery staple", hash))
	require.Error(t, VerifyPassword("correct horse ", hash))
	require.Error(t, VerifyPassword("", hash))
}

func TestHashPasswordSaltsAreUnique(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("same password")
	require.NoError(t, err)
	h2, err := HashPassword("same password")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	t.Parallel()

	t.Run("not a PHC string", func(t *testing.T) {
		require.Error(t, VerifyPassword("p", "plainly-not-a-hash"))
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		require.Error(t, VerifyPassword("p", "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"))
	})

	t.Run("undecodable salt", func(t *testing.T) {
		require.Error(t, VerifyPassword("p", "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA"))
	})

	t.Run("empty string", func(t *testing.T) {
		require.Error(t, VerifyPassword("p", ""))
	})
}
