package postgres

import (
	"context"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// RegionRepo implements ports.RegionRepository with pgx.
type RegionRepo struct {
	db *DB
}

func NewRegionRepo(db *DB) *RegionRepo {
	return &RegionRepo{db: db}
}

func (r *RegionRepo) GetByID(ctx context.Context, id string) (*domain.Region, error) {
	var reg domain.Region
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, price_multiplier, created_at
		FROM regions WHERE id = $1
	`, id).Scan(&reg.ID, &reg.Name, &reg.PriceMultiplier, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegionRepo) List(ctx context.Context) ([]domain.Region, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, price_multiplier, created_at
		FROM regions ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []domain.Region
	for rows.Next() {
		var reg domain.Region
		if err := rows.Scan(&reg.ID, &reg.Name, &reg.PriceMultiplier, &reg.CreatedAt); err != nil {
			return nil, err
		}
		regions = append(regions, reg)
	}
	return regions, rows.Err()
}
