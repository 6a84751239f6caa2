package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
	"github.com/kampunglabs/siskamling/internal/portal/realtime"
	"github.com/kampunglabs/siskamling/internal/portal/store"
	"github.com/kampunglabs/siskamling/internal/portal/store/drivers/sqlite"
	"github.com/kampunglabs/siskamling/pkg/cryptox"
	"github.com/kampunglabs/siskamling/pkg/idx"
	"github.com/kampunglabs/siskamling/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// eventRecorder captures published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	scopes []string
	event  realtime.Event
}

func (r *eventRecorder) Publish(scopes []string, evt realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{scopes: scopes, event: evt})
}

func (r *eventRecorder) byType(typ string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.event.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func newAuthService(t *testing.T, st store.Store) (*AuthService, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	return &AuthService{
		Store:         st,
		Signer:        jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef")),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		MaxAttempts:   5,
		LockoutWindow: 15 * time.Minute,
		Events:        rec,
		Notifier:      NopNotifier{},
	}, rec
}

func seedAccount(t *testing.T, st store.Store, username, password, role, unitID string) domain.Account {
	t.Helper()
	ctx := context.Background()

	if unitID != "" {
		village := domain.Village{ID: idx.New().String(), Name: "Sukamaju"}
		require.NoError(t, st.Units().CreateVillage(ctx, village))
		require.NoError(t, st.Units().CreateUnit(ctx, domain.Unit{
			ID:        unitID,
			VillageID: village.ID,
			Name:      "RT 01",
		}))
	}

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	account := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Name:         "Alice",
		PasswordHash: hash,
		Role:         role,
		UnitID:       unitID,
		IsActive:     true,
	}
	require.NoError(t, st.Accounts().CreateAccount(ctx, account))
	return account
}

func TestLoginSuccess(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, rec := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "unit-1")

	pair, summary, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, account.ID, summary.ID)
	require.Equal(t, "alice", summary.Username)

	// A session row exists with expiry near now + refresh lifetime.
	session, err := st.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, account.ID, session.AccountID)
	require.WithinDuration(t, time.Now().Add(svc.RefreshTTL), session.ExpiresAt, time.Minute)

	// Access token claims carry identity, role, and unit affiliation.
	claims, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef")).Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, account.ID, claims.Subject)
	require.Equal(t, domain.RoleResident, claims.Role)
	require.Equal(t, "unit-1", claims.UnitID)

	// A success attempt is in the ledger; no failures.
	failures, err := st.LoginAttempts().CountRecentFailures(ctx, "alice", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, failures)

	// Admins got notified over the hub.
	events := rec.byType("user.logged_in")
	require.Len(t, events, 1)
	require.Equal(t, []string{realtime.RoleScope(domain.RoleAdmin)}, events[0].scopes)
}

func TestLoginCaseFoldsUsername(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	_, summary, err := svc.Login(ctx, "  ALICE ", "Secret123!", "1.2.3.4", "UA")
	require.NoError(t, err)
	require.Equal(t, "alice", summary.Username)
}

func TestLoginEnumerationResistance(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	seedAccount(t, st, "real_user", "Secret123!", domain.RoleResident, "")

	_, _, errUnknown := svc.Login(ctx, "nonexistent_user", "anything", "1.2.3.4", "UA")
	_, _, errWrongPw := svc.Login(ctx, "real_user", "wrong_password", "1.2.3.4", "UA")

	// Identical error for "no such user" and "wrong password".
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrongPw.Error())

	// Both attempts are in the ledger, including the nonexistent username.
	failures, err := st.LoginAttempts().CountRecentFailures(ctx, "nonexistent_user", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, failures)
}

func TestLoginInactiveAccount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")
	require.NoError(t, st.Accounts().SetActive(ctx, account.ID, false))

	// Correct password, but the account is deactivated.
	_, _, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// The failed attempt is still recorded.
	failures, err := st.LoginAttempts().CountRecentFailures(ctx, "alice", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, failures)
}

func TestLoginLockout(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	for range svc.MaxAttempts {
		_, _, err := svc.Login(ctx, "alice", "wrong", "1.2.3.4", "UA")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Sixth attempt is rejected before the password is even checked, so the
	// correct password still yields LockedOut.
	_, _, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrLockedOut)

	// Lockout is scoped by username; other addresses trip it too.
	_, _, err = svc.Login(ctx, "alice", "Secret123!", "9.9.9.9", "other UA")
	require.ErrorIs(t, err, ErrLockedOut)

	// Other usernames are unaffected.
	seedAccount(t, st, "bob", "Hunter2!!", domain.RoleResident, "")
	_, _, err = svc.Login(ctx, "bob", "Hunter2!!", "1.2.3.4", "UA")
	require.NoError(t, err)
}

func TestLockoutAppliesToUnknownUsernames(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)

	for range svc.MaxAttempts {
		_, _, err := svc.Login(ctx, "ghost", "whatever", "1.2.3.4", "UA")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, _, err := svc.Login(ctx, "ghost", "whatever", "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrLockedOut)
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	pair, _, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken, "1.2.3.4", "UA")
	require.NoError(t, err)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The consumed token is single-use: replaying it fails.
	_, err = svc.Refresh(ctx, pair.RefreshToken, "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// The rotated token works.
	_, err = svc.Refresh(ctx, rotated.RefreshToken, "1.2.3.4", "UA")
	require.NoError(t, err)
}

func TestRefreshRejectsGarbageAndExpired(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	_, err := svc.Refresh(ctx, "never-issued", "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// An expired session row is as good as absent.
	expired, err := cryptox.NewSessionToken()
	require.NoError(t, err)
	require.NoError(t, st.Sessions().CreateSession(ctx, domain.Session{
		ID:        idx.New().String(),
		AccountID: account.ID,
		TokenHash: cryptox.FingerprintToken(expired),
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err = svc.Refresh(ctx, expired, "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshRejectsDeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	pair, _, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
	require.NoError(t, err)

	require.NoError(t, st.Accounts().SetActive(ctx, account.ID, false))

	_, err = svc.Refresh(ctx, pair.RefreshToken, "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogoutSingleSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	first, _, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
	require.NoError(t, err)
	second, _, err := svc.Login(ctx, "alice", "Secret123!", "5.6.7.8", "UA2")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, account.ID, first.RefreshToken))

	// Only the named session died.
	_, err = svc.Refresh(ctx, first.RefreshToken, "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = svc.Refresh(ctx, second.RefreshToken, "5.6.7.8", "UA2")
	require.NoError(t, err)
}

func TestLogoutEverywhere(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	first, _, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
	require.NoError(t, err)
	second, _, err := svc.Login(ctx, "alice", "Secret123!", "5.6.7.8", "UA2")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, account.ID, ""))

	_, err = svc.Refresh(ctx, first.RefreshToken, "1.2.3.4", "UA")
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = svc.Refresh(ctx, second.RefreshToken, "5.6.7.8", "UA2")
	require.ErrorIs(t, err, ErrInvalidRefresh)

	count, err := st.Sessions().CountSessionsByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	tok, err := cryptox.NewSessionToken()
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, account.ID, tok))
	require.NoError(t, svc.Logout(ctx, account.ID, ""))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	t.Run("no fields fails", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, account.ID, ProfileUpdate{})
		require.ErrorIs(t, err, ErrNoChanges)
	})

	t.Run("rename", func(t *testing.T) {
		name := "Alice Rahma"
		summary, err := svc.UpdateProfile(ctx, account.ID, ProfileUpdate{Name: &name})
		require.NoError(t, err)
		require.Equal(t, "Alice Rahma", summary.Name)
	})

	t.Run("password change keeps sessions alive", func(t *testing.T) {
		pair, _, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
		require.NoError(t, err)

		newPw := "Fresh456?"
		_, err = svc.UpdateProfile(ctx, account.ID, ProfileUpdate{Password: &newPw})
		require.NoError(t, err)

		// Old password no longer works, new one does.
		_, _, err = svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, _, err = svc.Login(ctx, "alice", "Fresh456?", "1.2.3.4", "UA")
		require.NoError(t, err)

		// The pre-change session still refreshes.
		_, err = svc.Refresh(ctx, pair.RefreshToken, "1.2.3.4", "UA")
		require.NoError(t, err)
	})

	t.Run("name and password together", func(t *testing.T) {
		name := "Alice Rahma II"
		pw := "Brand789#"
		summary, err := svc.UpdateProfile(ctx, account.ID, ProfileUpdate{Name: &name, Password: &pw})
		require.NoError(t, err)
		require.Equal(t, "Alice Rahma II", summary.Name)

		_, _, err = svc.Login(ctx, "alice", "Brand789#", "1.2.3.4", "UA")
		require.NoError(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		name := "nobody"
		pw := "Whatever1!"
		_, err := svc.UpdateProfile(ctx, idx.New().String(), ProfileUpdate{Name: &name, Password: &pw})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "unit-1")

	summary, err := svc.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", summary.Username)
	require.Equal(t, "unit-1", summary.UnitID)

	_, err = svc.GetProfile(ctx, idx.New().String())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeSessionExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	account := seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	tok, err := cryptox.NewSessionToken()
	require.NoError(t, err)
	hash := cryptox.FingerprintToken(tok)
	require.NoError(t, st.Sessions().CreateSession(ctx, domain.Session{
		ID:        idx.New().String(),
		AccountID: account.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	// The conditional delete yields the row exactly once no matter how many
	// times the same fingerprint is presented.
	session, err := st.Sessions().ConsumeSessionByTokenHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, account.ID, session.AccountID)

	_, err = st.Sessions().ConsumeSessionByTokenHash(ctx, hash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshConcurrentRotationOneWinner(t *testing.T) {
	ctx := context.Background()

	// A file-backed database with the production pragmas: concurrency
	// behaves like deployment, not like the single-connection memory store.
	st, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "portal.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	svc, _ := newAuthService(t, st)
	seedAccount(t, st, "alice", "Secret123!", domain.RoleResident, "")

	for range 8 {
		pair, _, err := svc.Login(ctx, "alice", "Secret123!", "1.2.3.4", "UA")
		require.NoError(t, err)

		start := make(chan struct{})
		results := make(chan error, 2)
		for range 2 {
			go func() {
				<-start
				_, err := svc.Refresh(ctx, pair.RefreshToken, "1.2.3.4", "UA")
				results <- err
			}()
		}
		close(start)

		var wins, losses int
		for range 2 {
			switch err := <-results; {
			case err == nil:
				wins++
			case errors.Is(err, ErrInvalidRefresh):
				losses++
			default:
				t.Fatalf("refresh race surfaced an unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, wins, "exactly one rotation must win")
		require.Equal(t, 1, losses, "the loser must see the invalid-refresh error")
	}
}
