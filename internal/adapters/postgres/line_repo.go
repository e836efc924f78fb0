package postgres

import (
	"context"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// LineRepo implements ports.LineRepository with pgx. Station ordering within
// a line comes from line_stations.position.
type LineRepo struct {
	db *DB
}

func NewLineRepo(db *DB) *LineRepo {
	return &LineRepo{db: db}
}

func (r *LineRepo) GetByID(ctx context.Context, id string) (*domain.Line, error) {
	return r.getOne(ctx, `WHERE l.id = $1`, id)
}

func (r *LineRepo) GetByCode(ctx context.Context, code string) (*domain.Line, error) {
	return r.getOne(ctx, `WHERE l.code = $1`, code)
}

func (r *LineRepo) getOne(ctx context.Context, where string, arg any) (*domain.Line, error) {
	var line domain.Line
	err := r.db.Pool.QueryRow(ctx, `
		SELECT l.id, l.code, l.fare_multiplier, l.created_at
		FROM lines l `+where, arg).Scan(&line.ID, &line.Code, &line.FareMultiplier, &line.CreatedAt)
	if err != nil {
		return nil, err
	}

	stations, err := r.lineStations(ctx, line.ID)
	if err != nil {
		return nil, err
	}
	line.Stations = stations
	return &line, nil
}

func (r *LineRepo) lineStations(ctx context.Context, lineID string) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT s.id, s.name, s.lat, s.lon, s.region_id, s.status, s.created_at
		FROM line_stations ls
		JOIN stations s ON s.id = ls.station_id
		WHERE ls.line_id = $1
		ORDER BY ls.position
	`, lineID)
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

// ListWithStations returns every line with its full ordered station sequence
// in a single query, grouped in memory.
func (r *LineRepo) ListWithStations(ctx context.Context) ([]domain.Line, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT l.id, l.code, l.fare_multiplier, l.created_at,
		       s.id, s.name, s.lat, s.lon, s.region_id, s.status, s.created_at
		FROM lines l
		JOIN line_stations ls ON ls.line_id = l.id
		JOIN stations s ON s.id = ls.station_id
		ORDER BY l.id, ls.position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.Line
	idx := map[string]int{}
	for rows.Next() {
		var line domain.Line
		var s domain.Station
		var lat, lon *float64
		if err := rows.Scan(
			&line.ID, &line.Code, &line.FareMultiplier, &line.CreatedAt,
			&s.ID, &s.Name, &lat, &lon, &s.RegionID, &s.Status, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		setLocation(&s, lat, lon)

		i, ok := idx[line.ID]
		if !ok {
			i = len(lines)
			idx[line.ID] = i
			lines = append(lines, line)
		}
		lines[i].Stations = append(lines[i].Stations, s)
	}
	return lines, rows.Err()
}
