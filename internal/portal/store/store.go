package store

import (
	"context"
	"errors"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// Sub-repositories keep concerns tidy and let services declare exactly what
// they touch.
type Store interface {
	Accounts() Accounts
	Sessions() Sessions
	LoginAttempts() LoginAttempts
	ActivityLogs() ActivityLogs
	Cameras() Cameras
	Units() Units

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rollback when fn errors,
	// commit otherwise. Multi-step operations that must be atomic (refresh
	// rotation) go through here.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByUsername looks up by the case-folded (lowercase) username.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// CreateAccount inserts a new account (id provided by the app via ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateName mutates the display name and bumps updated_at.
	UpdateName(ctx context.Context, accountID, name string) error

	// UpdatePasswordHash sets the password_hash (argon2id) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID, newHash string) error

	// UpdateLastLogin records the latest successful login timestamp.
	UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error

	// SetActive flips the active flag; deactivation is a soft delete, the
	// row stays for audit.
	SetActive(ctx context.Context, accountID string, active bool) error
}

type Sessions interface {
	// CreateSession stores a new refresh-token session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash returns the session for a token fingerprint,
	// only while its expiry is still in the future.
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// ConsumeSessionByTokenHash deletes the non-expired session for a token
	// fingerprint in a single conditional statement and returns the deleted
	// row, or ErrNotFound when no live session matched. Two concurrent
	// callers with the same token observe exactly one row. Inside a rotation
	// transaction this must be the first statement so the write lock is
	// taken up front.
	ConsumeSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// DeleteSessionByTokenHash removes one session; deleting a nonexistent
	// session is not an error.
	DeleteSessionByTokenHash(ctx context.Context, hash string) error

	// DeleteSessionsByAccount removes every session the account owns
	// ("log out everywhere").
	DeleteSessionsByAccount(ctx context.Context, accountID string) error

	// CountSessionsByAccount reports outstanding sessions for an account.
	CountSessionsByAccount(ctx context.Context, accountID string) (int, error)

	// DeleteExpiredSessions is housekeeping; it reports the number of rows
	// removed.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

type LoginAttempts interface {
	// RecordLoginAttempt appends one attempt row. Rows are never updated or
	// deleted by application logic.
	RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	// CountRecentFailures counts failed attempts for a username since the
	// given cutoff (the lockout read-side aggregate).
	CountRecentFailures(ctx context.Context, username string, since time.Time) (int, error)

	// PruneAttemptsBefore drops attempts older than the cutoff and reports
	// how many rows went; housekeeping only, the lockout window never looks
	// that far back.
	PruneAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ActivityLogs interface {
	// AppendActivity writes one immutable activity record.
	AppendActivity(ctx context.Context, entry domain.ActivityLog) error

	// ListActivityByAccount returns the most recent activity for an account,
	// newest first.
	ListActivityByAccount(ctx context.Context, accountID string, limit int) ([]domain.ActivityLog, error)
}

type Cameras interface {
	// CreateCamera inserts a camera with its stream secret already encrypted.
	CreateCamera(ctx context.Context, c domain.Camera) error

	// GetCameraByID returns a camera by id.
	GetCameraByID(ctx context.Context, id string) (domain.Camera, error)

	// ListCamerasByUnit returns all cameras of one neighborhood unit.
	ListCamerasByUnit(ctx context.Context, unitID string) ([]domain.Camera, error)

	// UpdateCameraSecret replaces the encrypted stream secret.
	UpdateCameraSecret(ctx context.Context, cameraID, secret string) error

	// UpdateCameraStatus transitions online/offline and stamps
	// last_online_at when coming online.
	UpdateCameraStatus(ctx context.Context, cameraID, status string, at time.Time) error
}

type Units interface {
	// GetUnitByID returns a unit by id.
	GetUnitByID(ctx context.Context, id string) (domain.Unit, error)

	// CreateVillage and CreateUnit exist for seeding and administrative
	// tooling; the full CRUD surface lives outside this core.
	CreateVillage(ctx context.Context, v domain.Village) error
	CreateUnit(ctx context.Context, u domain.Unit) error
}
