package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// RiderRepo implements ports.RiderRepository and ports.BalanceReader.
type RiderRepo struct {
	db *DB
}

func NewRiderRepo(db *DB) *RiderRepo {
	return &RiderRepo{db: db}
}

func (r *RiderRepo) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	var rd domain.Rider
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, email, balance, created_at
		FROM riders WHERE id = $1
	`, id).Scan(&rd.ID, &rd.Email, &rd.Balance, &rd.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *RiderRepo) Balance(ctx context.Context, riderID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.Pool.QueryRow(ctx, `
		SELECT balance FROM riders WHERE id = $1
	`, riderID).Scan(&balance)
	return balance, err
}
