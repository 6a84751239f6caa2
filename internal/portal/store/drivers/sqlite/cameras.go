package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
	"github.com/kampunglabs/siskamling/internal/portal/store"
)

type camerasRepo struct {
	q queryer
}

const cameraColumns = `id, unit_id, name, stream_secret, location, status, last_online_at, created_by, created_at, updated_at`

func scanCamera(row *sql.Row) (domain.Camera, error) {
	var (
		c          domain.Camera
		location   sql.NullString
		lastOnline sql.NullTime
	)
	err := row.Scan(&c.ID, &c.UnitID, &c.Name, &c.StreamSecret, &location, &c.Status,
		&lastOnline, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Camera{}, mapNotFound(err)
	}
	c.Location = mapNullString(location)
	c.LastOnlineAt = mapNullTime(lastOnline)
	return c, nil
}

func (r *camerasRepo) CreateCamera(ctx context.Context, c domain.Camera) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO cameras (id, unit_id, name, stream_secret, location, status, last_online_at, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UnitID, c.Name, c.StreamSecret, nullString(c.Location), c.Status,
		nullTime(c.LastOnlineAt), c.CreatedByID, now, now,
	)
	return mapConstraint(err)
}

func (r *camerasRepo) GetCameraByID(ctx context.Context, id string) (domain.Camera, error) {
	return scanCamera(r.q.QueryRowContext(ctx,
		`SELECT `+cameraColumns+` FROM cameras WHERE id = ?`, id))
}

func (r *camerasRepo) ListCamerasByUnit(ctx context.Context, unitID string) ([]domain.Camera, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+cameraColumns+` FROM cameras WHERE unit_id = ? ORDER BY name`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Camera
	for rows.Next() {
		var (
			c          domain.Camera
			location   sql.NullString
			lastOnline sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.UnitID, &c.Name, &c.StreamSecret, &location, &c.Status,
			&lastOnline, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Location = mapNullString(location)
		c.LastOnlineAt = mapNullTime(lastOnline)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *camerasRepo) UpdateCameraSecret(ctx context.Context, cameraID, secret string) error {
	return r.exec(ctx, `UPDATE cameras SET stream_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), cameraID)
}

func (r *camerasRepo) UpdateCameraStatus(ctx context.Context, cameraID, status string, at time.Time) error {
	if status == domain.CameraOnline {
		return r.exec(ctx, `UPDATE cameras SET status = ?, last_online_at = ?, updated_at = ? WHERE id = ?`,
			status, at.UTC(), time.Now().UTC(), cameraID)
	}
	return r.exec(ctx, `UPDATE cameras SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), cameraID)
}

func (r *camerasRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err)
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
