package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
	"github.com/kampunglabs/siskamling/internal/portal/store"
)

type accountsRepo struct {
	q queryer
}

const accountColumns = `id, username, name, password_hash, role, unit_id, is_active, last_login_at, created_at, updated_at`

func scanAccount(row *sql.Row) (domain.Account, error) {
	var (
		a         domain.Account
		unitID    sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.Username, &a.Name, &a.PasswordHash, &a.Role,
		&unitID, &a.IsActive, &lastLogin, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.UnitID = mapNullString(unitID)
	a.LastLoginAt = mapNullTime(lastLogin)
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	// Usernames are stored folded; lookups fold too, so case never matters.
	username := strings.ToLower(strings.TrimSpace(a.Username))
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (id, username, name, password_hash, role, unit_id, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, username, a.Name, a.PasswordHash, a.Role, nullString(a.UnitID), a.IsActive, now, now,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdateName(ctx context.Context, accountID, name string) error {
	return r.exec(ctx,
		`UPDATE accounts SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), accountID)
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID, newHash string) error {
	return r.exec(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), accountID)
}

func (r *accountsRepo) UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error {
	return r.exec(ctx,
		`UPDATE accounts SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), accountID)
}

func (r *accountsRepo) SetActive(ctx context.Context, accountID string, active bool) error {
	return r.exec(ctx,
		`UPDATE accounts SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), accountID)
}

// exec runs an UPDATE that must touch exactly one account row.
func (r *accountsRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
