package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
	"github.com/kampunglabs/siskamling/internal/portal/obs"
	"github.com/kampunglabs/siskamling/internal/portal/realtime"
	"github.com/kampunglabs/siskamling/internal/portal/store"
	"github.com/kampunglabs/siskamling/pkg/cryptox"
	"github.com/kampunglabs/siskamling/pkg/idx"
	"github.com/kampunglabs/siskamling/pkg/jwtx"
	"github.com/kampunglabs/siskamling/pkg/slogx"
)

var (
	ErrLockedOut          = errors.New("locked_out")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrNoChanges          = errors.New("no_changes")
	ErrNotFound           = errors.New("not_found")
	ErrAccessDenied       = errors.New("access_denied")
)

// AuthService owns the login/refresh/logout session lifecycle and account
// profile operations.
type AuthService struct {
	Store  store.Store
	Signer jwtx.Signer

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Lockout policy: reject logins for a username once MaxAttempts
	// failures accumulate within LockoutWindow.
	MaxAttempts   int
	LockoutWindow time.Duration

	Events   realtime.Broadcaster
	Notifier Notifier
}

// Login authenticates a username/password pair and opens a new session.
//
// The lockout check runs before the password hash is ever computed, so an
// attacker hammering one username cannot burn CPU. Every attempt that gets
// past the lockout gate is recorded, including attempts against usernames
// that map to no account.
func (s *AuthService) Login(ctx context.Context, username, password, sourceAddr, userAgent string) (domain.TokenPair, domain.AccountSummary, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)
	username = strings.ToLower(strings.TrimSpace(username))

	if err := s.checkLockout(ctx, username, now); err != nil {
		if errors.Is(err, ErrLockedOut) {
			obs.ObserveLogin(obs.LoginLockedOut)
			l.Info("login rejected by lockout", slog.String("username", username), slog.String("addr", sourceAddr))
		}
		return domain.TokenPair{}, domain.AccountSummary{}, err
	}

	account, err := s.Store.Accounts().GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordAttempt(ctx, username, sourceAddr, userAgent, false)
			obs.ObserveLogin(obs.LoginUnknownUser)
			l.Info("login for unknown username", slog.String("username", username), slog.String("addr", sourceAddr))
			return domain.TokenPair{}, domain.AccountSummary{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, domain.AccountSummary{}, err
	}

	if !account.IsActive {
		s.recordAttempt(ctx, username, sourceAddr, userAgent, false)
		obs.ObserveLogin(obs.LoginInactive)
		l.Info("login for inactive account", slog.String("username", username), slog.String("addr", sourceAddr))
		return domain.TokenPair{}, domain.AccountSummary{}, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		s.recordAttempt(ctx, username, sourceAddr, userAgent, false)
		obs.ObserveLogin(obs.LoginBadPassword)
		l.Info("login password mismatch", slog.String("username", username), slog.String("addr", sourceAddr))
		return domain.TokenPair{}, domain.AccountSummary{}, ErrInvalidCredentials
	}

	s.recordAttempt(ctx, username, sourceAddr, userAgent, true)
	obs.ObserveLogin(obs.LoginSuccess)

	pair, err := s.openSession(ctx, account, sourceAddr, userAgent, now)
	if err != nil {
		return domain.TokenPair{}, domain.AccountSummary{}, err
	}

	if err := s.Store.Accounts().UpdateLastLogin(ctx, account.ID, now); err != nil {
		l.Warn("failed to stamp last login", slog.String("account_id", account.ID), slog.String("error", err.Error()))
	}

	s.appendActivity(ctx, domain.ActivityLog{
		AccountID: account.ID,
		Action:    "auth.login",
		IPAddress: sourceAddr,
	})

	if s.Events != nil {
		s.Events.Publish([]string{realtime.RoleScope(domain.RoleAdmin)}, realtime.Event{
			Type:    "user.logged_in",
			Payload: account.Summary(),
		})
	}
	notifyAsync(s.Notifier, l, fmt.Sprintf("Login: %s (%s)", account.Name, account.Username))

	l.Info("login succeeded", slog.String("account_id", account.ID), slog.String("username", username))
	return pair, account.Summary(), nil
}

// Refresh rotates a refresh token: the presented token is consumed and a new
// access/refresh pair is issued. Single-use semantics hold under concurrency:
// two calls racing on the same token see exactly one winner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, sourceAddr, userAgent string) (domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)
	fingerprint := cryptox.FingerprintToken(refreshToken)

	var pair domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// The conditional delete is the rotation's linearization point: of
		// two concurrent calls holding the same token, only one gets the
		// row back. It must come first in the transaction so the write lock
		// is held before anything is read and the loser queues on the busy
		// timeout rather than failing a lock upgrade mid-transaction.
		session, err := tx.Sessions().ConsumeSessionByTokenHash(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		account, err := tx.Accounts().GetAccountByID(ctx, session.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if !account.IsActive {
			return ErrInvalidRefresh
		}

		pair, err = s.issuePair(ctx, tx, account, sourceAddr, userAgent, now)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRefresh) {
			return domain.TokenPair{}, err
		}
		// The transaction may still lose a lock fight under heavy contention.
		// If the session row is gone, a concurrent rotation consumed the
		// token and this call is simply the loser.
		if _, lookupErr := s.Store.Sessions().GetSessionByTokenHash(ctx, fingerprint); errors.Is(lookupErr, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidRefresh
		}
		return domain.TokenPair{}, err
	}

	l.Debug("refresh token rotated", slog.String("addr", sourceAddr))
	return pair, nil
}

// Logout revokes one session when refreshToken is non-empty, or every
// session the account owns when it is empty. Revoking an already-gone
// session succeeds.
func (s *AuthService) Logout(ctx context.Context, accountID, refreshToken string) error {
	l := slogx.FromContext(ctx)

	if refreshToken != "" {
		if err := s.Store.Sessions().DeleteSessionByTokenHash(ctx, cryptox.FingerprintToken(refreshToken)); err != nil {
			return err
		}
		l.Info("session revoked", slog.String("account_id", accountID))
		return nil
	}

	if err := s.Store.Sessions().DeleteSessionsByAccount(ctx, accountID); err != nil {
		return err
	}
	s.appendActivity(ctx, domain.ActivityLog{
		AccountID: accountID,
		Action:    "auth.logout_all",
	})
	l.Info("all sessions revoked", slog.String("account_id", accountID))
	return nil
}

// GetProfile returns the client-safe account summary.
func (s *AuthService) GetProfile(ctx context.Context, accountID string) (domain.AccountSummary, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccountSummary{}, ErrNotFound
		}
		return domain.AccountSummary{}, err
	}
	return account.Summary(), nil
}

// ProfileUpdate carries the optional profile mutations. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name     *string
	Password *string
}

// UpdateProfile applies name and/or password changes. Password changes are
// re-hashed here; a caller can never smuggle in a pre-computed hash. Existing
// sessions survive a password change.
func (s *AuthService) UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (domain.AccountSummary, error) {
	l := slogx.FromContext(ctx)

	if upd.Name == nil && upd.Password == nil {
		return domain.AccountSummary{}, ErrNoChanges
	}

	var name string
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if name == "" {
			return domain.AccountSummary{}, ErrNoChanges
		}
	}

	var hash string
	if upd.Password != nil {
		h, err := cryptox.HashPassword(*upd.Password)
		if err != nil {
			return domain.AccountSummary{}, err
		}
		hash = h
	}

	// Both mutations land in one transaction: a rename never survives a
	// failed password write or vice versa.
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if upd.Name != nil {
			if err := tx.Accounts().UpdateName(ctx, accountID, name); err != nil {
				return err
			}
		}
		if upd.Password != nil {
			if err := tx.Accounts().UpdatePasswordHash(ctx, accountID, hash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccountSummary{}, ErrNotFound
		}
		return domain.AccountSummary{}, err
	}

	if upd.Password != nil {
		s.appendActivity(ctx, domain.ActivityLog{
			AccountID: accountID,
			Action:    "auth.password_changed",
		})
		l.Info("password changed", slog.String("account_id", accountID))
	}

	return s.GetProfile(ctx, accountID)
}

// checkLockout fails with ErrLockedOut once the username accumulates
// MaxAttempts failures inside the trailing LockoutWindow. Scoped by username
// only, not by source address: credential stuffing against one account from
// many addresses still trips it.
func (s *AuthService) checkLockout(ctx context.Context, username string, now time.Time) error {
	failures, err := s.Store.LoginAttempts().CountRecentFailures(ctx, username, now.Add(-s.LockoutWindow))
	if err != nil {
		return err
	}
	if failures >= s.MaxAttempts {
		return ErrLockedOut
	}
	return nil
}

// recordAttempt appends to the attempt ledger. Ledger write failures must not
// turn a login verdict into a 500, so they only reach the log.
func (s *AuthService) recordAttempt(ctx context.Context, username, sourceAddr, userAgent string, success bool) {
	err := s.Store.LoginAttempts().RecordLoginAttempt(ctx, domain.LoginAttempt{
		ID:        idx.New().String(),
		Username:  username,
		IPAddress: sourceAddr,
		UserAgent: userAgent,
		Success:   success,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to record login attempt",
			slog.String("username", username), slog.String("error", err.Error()))
	}
}

func (s *AuthService) appendActivity(ctx context.Context, entry domain.ActivityLog) {
	entry.ID = idx.New().String()
	if err := s.Store.ActivityLogs().AppendActivity(ctx, entry); err != nil {
		slogx.FromContext(ctx).Error("failed to append activity",
			slog.String("account_id", entry.AccountID), slog.String("error", err.Error()))
	}
}

// openSession issues a token pair against the root store (login path).
func (s *AuthService) openSession(ctx context.Context, account domain.Account, sourceAddr, userAgent string, now time.Time) (domain.TokenPair, error) {
	return s.issuePair(ctx, s.Store, account, sourceAddr, userAgent, now)
}

// issuePair mints an access token and persists a fresh session row for a new
// opaque refresh token. st is either the root store or an open transaction.
func (s *AuthService) issuePair(ctx context.Context, st store.Store, account domain.Account, sourceAddr, userAgent string, now time.Time) (domain.TokenPair, error) {
	claims := jwtx.NewAccessClaims(account.ID, account.Username, account.Role, account.UnitID, s.AccessTTL, now)
	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refreshOpaque, err := cryptox.NewSessionToken()
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = st.Sessions().CreateSession(ctx, domain.Session{
		ID:        idx.New().String(),
		AccountID: account.ID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		UserAgent: userAgent,
		IPAddress: sourceAddr,
		ExpiresAt: now.Add(s.RefreshTTL),
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
	}, nil
}

// ListActivity returns the account's recent activity, newest first.
func (s *AuthService) ListActivity(ctx context.Context, accountID string, limit int) ([]domain.ActivityLog, error) {
	return s.Store.ActivityLogs().ListActivityByAccount(ctx, accountID, limit)
}
