package domain

import "time"

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Session is the persisted record backing one outstanding refresh token.
// The opaque token value itself is never stored; TokenHash is its SHA-256
// fingerprint. A session past ExpiresAt is invalid even while the row still
// exists; expiry is checked at read time and swept by housekeeping.
type Session struct {
	ID         string
	AccountID  string
	TokenHash  string
	UserAgent  string
	IPAddress  string
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// LoginAttempt is an immutable audit record of one authentication attempt,
// recorded whether or not the username maps to a real account.
type LoginAttempt struct {
	ID        string
	Username  string
	IPAddress string
	Success   bool
	UserAgent string
	CreatedAt time.Time
}

// ActivityLog is an append-only trail of notable account actions.
type ActivityLog struct {
	ID        string
	AccountID string
	Action    string
	Resource  string
	IPAddress string
	Metadata  string // JSON-encoded extra context
	CreatedAt time.Time
}
