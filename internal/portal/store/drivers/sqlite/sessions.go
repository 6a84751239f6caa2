package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
)

type sessionsRepo struct {
	q queryer
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, user_agent, ip_address, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AccountID, s.TokenHash, s.UserAgent, s.IPAddress, s.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, account_id, token_hash, user_agent, ip_address, expires_at, last_used_at, created_at
		FROM sessions
		WHERE token_hash = ? AND expires_at > ?`, hash, time.Now().UTC())

	var (
		s        domain.Session
		lastUsed sql.NullTime
	)
	err := row.Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.UserAgent, &s.IPAddress,
		&s.ExpiresAt, &lastUsed, &s.CreatedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.LastUsedAt = mapNullTime(lastUsed)
	return s, nil
}

// ConsumeSessionByTokenHash is the rotation primitive: one conditional DELETE
// that decides the winner when two refresh calls race on the same token. The
// RETURNING clause hands back the consumed row so the caller never needs a
// read before this write; as a transaction's first statement it takes the
// write lock immediately and a racing rotation queues on the busy timeout
// instead of failing a lock upgrade.
func (r *sessionsRepo) ConsumeSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `
		DELETE FROM sessions
		WHERE token_hash = ? AND expires_at > ?
		RETURNING id, account_id, token_hash, user_agent, ip_address, expires_at, last_used_at, created_at`,
		hash, time.Now().UTC())

	var (
		s        domain.Session
		lastUsed sql.NullTime
	)
	err := row.Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.UserAgent, &s.IPAddress,
		&s.ExpiresAt, &lastUsed, &s.CreatedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.LastUsedAt = mapNullTime(lastUsed)
	return s, nil
}

func (r *sessionsRepo) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hash)
	return err
}

func (r *sessionsRepo) DeleteSessionsByAccount(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE account_id = ?`, accountID)
	return err
}

func (r *sessionsRepo) CountSessionsByAccount(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE account_id = ?`, accountID).Scan(&n)
	return n, err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
