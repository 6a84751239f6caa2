package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	t.Parallel()

	tok, err := NewSessionToken()
	require.NoError(t, err)
	require.Len(t, tok, 64)

	raw, err := hex.DecodeString(tok)
	require.NoError(t, err)
	require.Len(t, raw, SessionTokenSize)

	other, err := NewSessionToken()
	require.NoError(t, err)
	require.NotEqual(t, tok, other)
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp := FingerprintToken("some-token")
	require.Len(t, fp, 43)
	require.Equal(t, fp, FingerprintToken("some-token"))
	require.NotEqual(t, fp, FingerprintToken("some-token2"))
}
