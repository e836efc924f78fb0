package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// FareConfigRepo implements ports.FareConfigRepository with pgx.
type FareConfigRepo struct {
	db *DB
}

func NewFareConfigRepo(db *DB) *FareConfigRepo {
	return &FareConfigRepo{db: db}
}

const fareConfigColumns = `
	id, base_price_per_km, minimum_fare, maximum_fare,
	peak_hour_multiplier, off_peak_hour_multiplier,
	effective_from, effective_to, status, created_at`

func scanFareConfig(row interface{ Scan(...any) error }) (*domain.FareConfiguration, error) {
	var cfg domain.FareConfiguration
	err := row.Scan(
		&cfg.ID, &cfg.BasePricePerKm, &cfg.MinimumFare, &cfg.MaximumFare,
		&cfg.PeakHourMultiplier, &cfg.OffPeakHourMultiplier,
		&cfg.EffectiveFrom, &cfg.EffectiveTo, &cfg.Status, &cfg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *FareConfigRepo) GetByID(ctx context.Context, id string) (*domain.FareConfiguration, error) {
	return scanFareConfig(r.db.Pool.QueryRow(ctx, `
		SELECT `+fareConfigColumns+` FROM fare_configurations WHERE id = $1
	`, id))
}

// FindActive returns the configuration in effect at the given instant, or
// nil when none is. At most one row can match: activation keeps a single
// ACTIVE row.
func (r *FareConfigRepo) FindActive(ctx context.Context, at time.Time) (*domain.FareConfiguration, error) {
	cfg, err := scanFareConfig(r.db.Pool.QueryRow(ctx, `
		SELECT `+fareConfigColumns+`
		FROM fare_configurations
		WHERE status = 'ACTIVE'
		  AND effective_from <= $1
		  AND (effective_to IS NULL OR effective_to > $1)
	`, at))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

func (r *FareConfigRepo) List(ctx context.Context) ([]domain.FareConfiguration, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+fareConfigColumns+`
		FROM fare_configurations ORDER BY effective_from DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.FareConfiguration
	for rows.Next() {
		cfg, err := scanFareConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

func (r *FareConfigRepo) Create(ctx context.Context, cfg *domain.FareConfiguration) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO fare_configurations (
			base_price_per_km, minimum_fare, maximum_fare,
			peak_hour_multiplier, off_peak_hour_multiplier,
			effective_from, effective_to, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		cfg.BasePricePerKm, cfg.MinimumFare, cfg.MaximumFare,
		cfg.PeakHourMultiplier, cfg.OffPeakHourMultiplier,
		cfg.EffectiveFrom, cfg.EffectiveTo, cfg.Status,
	).Scan(&cfg.ID, &cfg.CreatedAt)
}

// Activate swaps the ACTIVE row in a single transaction: the previous active
// configuration is closed out at the switch instant and the target becomes
// ACTIVE from that instant. No moment observes zero or two active configs.
func (r *FareConfigRepo) Activate(ctx context.Context, id string, at time.Time) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE fare_configurations
		SET status = 'INACTIVE', effective_to = $1
		WHERE status = 'ACTIVE'
	`, at); err != nil {
		return fmt.Errorf("deactivate current: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE fare_configurations
		SET status = 'ACTIVE', effective_from = $2, effective_to = NULL
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFareConfigNotFound
	}

	return tx.Commit(ctx)
}
