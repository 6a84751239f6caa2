package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kampunglabs/siskamling/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	signer := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"))

	var gotAccountID string
	protected := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccountID = AccountIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}), AuthnMiddleware(signer))

	get := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid bearer token", func(t *testing.T) {
		raw, err := signer.Sign(jwtx.NewAccessClaims("acct-1", "alice", "resident", "", time.Minute, time.Now()))
		require.NoError(t, err)

		rec := get("Bearer " + raw)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "acct-1", gotAccountID)
	})

	t.Run("missing header", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, get("").Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, get("Basic abc").Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, get("Bearer nope").Code)
	})

	t.Run("expired token", func(t *testing.T) {
		raw, err := signer.Sign(jwtx.NewAccessClaims("acct-1", "alice", "resident", "", time.Second, time.Now().Add(-time.Minute)))
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, get("Bearer "+raw).Code)
	})
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	signer := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"))

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), AuthnMiddleware(signer), RequireRole("admin"))

	get := func(role string) int {
		raw, err := signer.Sign(jwtx.NewAccessClaims("acct-1", "alice", role, "", time.Minute, time.Now()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/admin", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, get("admin"))
	require.Equal(t, http.StatusForbidden, get("resident"))
}
