package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
)

type loginAttemptsRepo struct {
	q queryer
}

func (r *loginAttemptsRepo) RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_attempts (id, username, ip_address, user_agent, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.IPAddress, a.UserAgent, a.Success, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *loginAttemptsRepo) CountRecentFailures(ctx context.Context, username string, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = ? AND success = 0 AND created_at > ?`,
		username, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *loginAttemptsRepo) PruneAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM login_attempts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type activityLogsRepo struct {
	q queryer
}

func (r *activityLogsRepo) AppendActivity(ctx context.Context, entry domain.ActivityLog) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO activity_logs (id, account_id, action, resource, metadata, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AccountID, entry.Action, nullString(entry.Resource), nullString(entry.Metadata), entry.IPAddress, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *activityLogsRepo) ListActivityByAccount(ctx context.Context, accountID string, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, account_id, action, resource, metadata, ip_address, created_at
		FROM activity_logs
		WHERE account_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActivityLog
	for rows.Next() {
		var (
			entry    domain.ActivityLog
			resource sql.NullString
			metadata sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Action, &resource, &metadata, &entry.IPAddress, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Resource = mapNullString(resource)
		entry.Metadata = mapNullString(metadata)
		out = append(out, entry)
	}
	return out, rows.Err()
}
