package postgres

import (
	"context"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// StationRepo implements ports.StationRepository with pgx.
type StationRepo struct {
	db *DB
}

func NewStationRepo(db *DB) *StationRepo {
	return &StationRepo{db: db}
}

func (r *StationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	var s domain.Station
	var lat, lon *float64
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, lat, lon, region_id, status, created_at
		FROM stations WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &lat, &lon, &s.RegionID, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	setLocation(&s, lat, lon)
	return &s, nil
}

func (r *StationRepo) List(ctx context.Context) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, lat, lon, region_id, status, created_at
		FROM stations ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var s domain.Station
		var lat, lon *float64
		if err := rows.Scan(&s.ID, &s.Name, &lat, &lon, &s.RegionID, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		setLocation(&s, lat, lon)
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

// setLocation leaves Location nil unless both coordinates are present.
func setLocation(s *domain.Station, lat, lon *float64) {
	if lat != nil && lon != nil {
		s.Location = &domain.GeoPoint{Lat: *lat, Lon: *lon}
	}
}
