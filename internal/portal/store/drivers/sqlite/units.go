package sqlite

import (
	"context"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
)

type unitsRepo struct {
	q queryer
}

func (r *unitsRepo) GetUnitByID(ctx context.Context, id string) (domain.Unit, error) {
	var u domain.Unit
	err := r.q.QueryRowContext(ctx, `
		SELECT id, village_id, name, created_at, updated_at FROM units WHERE id = ?`, id,
	).Scan(&u.ID, &u.VillageID, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.Unit{}, mapNotFound(err)
	}
	return u, nil
}

func (r *unitsRepo) CreateVillage(ctx context.Context, v domain.Village) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO villages (id, name, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.Name, nullString(v.Address), now, now,
	)
	return mapConstraint(err)
}

func (r *unitsRepo) CreateUnit(ctx context.Context, u domain.Unit) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO units (id, village_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.VillageID, u.Name, now, now,
	)
	return mapConstraint(err)
}
