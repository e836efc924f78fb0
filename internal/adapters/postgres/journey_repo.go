package postgres

import (
	"context"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// JourneyRepo implements ports.JourneyRepository with pgx.
type JourneyRepo struct {
	db *DB
}

func NewJourneyRepo(db *DB) *JourneyRepo {
	return &JourneyRepo{db: db}
}

const journeyColumns = `
	id, rider_id, start_station_id, end_station_id, line_id,
	start_time, end_time, status, distance_km, fare, created_at`

func scanJourney(row interface{ Scan(...any) error }) (*domain.Journey, error) {
	var j domain.Journey
	err := row.Scan(
		&j.ID, &j.RiderID, &j.StartStationID, &j.EndStationID, &j.LineID,
		&j.StartTime, &j.EndTime, &j.Status, &j.DistanceKm, &j.Fare, &j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *JourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO journeys (
			id, rider_id, start_station_id, end_station_id, line_id,
			start_time, status, distance_km, fare
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`,
		j.ID, j.RiderID, j.StartStationID, j.EndStationID, j.LineID,
		j.StartTime, j.Status, j.DistanceKm, j.Fare,
	).Scan(&j.CreatedAt)
}

func (r *JourneyRepo) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	return scanJourney(r.db.Pool.QueryRow(ctx, `
		SELECT `+journeyColumns+` FROM journeys WHERE id = $1
	`, id))
}

func (r *JourneyRepo) ListByRider(ctx context.Context, riderID string) ([]domain.Journey, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+journeyColumns+`
		FROM journeys WHERE rider_id = $1
		ORDER BY start_time DESC
	`, riderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journeys []domain.Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, *j)
	}
	return journeys, rows.Err()
}

func (r *JourneyRepo) Update(ctx context.Context, j *domain.Journey) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE journeys
		SET end_time = $2, status = $3, distance_km = $4, fare = $5
		WHERE id = $1
	`, j.ID, j.EndTime, j.Status, j.DistanceKm, j.Fare)
	return err
}
