package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytransittn/transitfare/internal/core/domain"
	"github.com/mytransittn/transitfare/internal/core/ports"
	"github.com/mytransittn/transitfare/internal/pkg/metrics"
)

// Peak windows: 07:00-09:00 and 17:00-19:00, end-exclusive, judged by the
// journey's start time.
func isPeakHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 7 && h < 9) || (h >= 17 && h < 19)
}

var two = decimal.NewFromInt(2)

// FareService turns a journey's distance into a price under the active
// pricing configuration, and measures distances along a specific line's
// station ordering. All monetary arithmetic is exact decimal.
type FareService struct {
	configs   ports.FareConfigRepository
	lines     ports.LineRepository
	stations  ports.StationRepository
	regions   ports.RegionRepository
	distances *DistanceService

	now func() time.Time
}

// NewFareService creates a FareService.
func NewFareService(
	configs ports.FareConfigRepository,
	lines ports.LineRepository,
	stations ports.StationRepository,
	regions ports.RegionRepository,
	distances *DistanceService,
) *FareService {
	return &FareService{
		configs:   configs,
		lines:     lines,
		stations:  stations,
		regions:   regions,
		distances: distances,
		now:       time.Now,
	}
}

// DistanceAlongLine sums consecutive-station distances between start and end
// within the line's ordering. The result is direction-agnostic: the sum is
// always taken forward through the smaller-to-larger index window, so
// callers that care about travel direction must compare indices themselves.
// A station missing from the line degrades to the point-to-point distance
// rather than failing the fare computation.
func (s *FareService) DistanceAlongLine(ctx context.Context, line *domain.Line, start, end *domain.Station) float64 {
	if start.ID == end.ID {
		return 0
	}

	si := line.StationIndex(start.ID)
	ei := line.StationIndex(end.ID)
	if si < 0 || ei < 0 {
		slog.Warn("station not on line, falling back to direct distance",
			"line", line.Code, "start", start.ID, "end", end.ID)
		return s.distances.Distance(ctx, start, end)
	}

	lo, hi := si, ei
	if lo > hi {
		lo, hi = hi, lo
	}

	total := 0.0
	for i := lo; i < hi; i++ {
		total += s.distances.Distance(ctx, &line.Stations[i], &line.Stations[i+1])
	}
	return total
}

// ComputeFare prices a journey: base rate × distance, times the line's fare
// multiplier, times the half-up mean of the two endpoint regions' price
// multipliers, times the peak or off-peak factor for the journey's start
// time, clamped to the configuration's bounds and rounded to cents half-up.
// The journey's DistanceKm is populated as a side effect when absent; the
// caller persists it. No active configuration is a fatal precondition.
func (s *FareService) ComputeFare(ctx context.Context, j *domain.Journey) (decimal.Decimal, error) {
	cfg, err := s.configs.FindActive(ctx, s.now())
	if err != nil || cfg == nil {
		return decimal.Zero, domain.ErrNoActiveFareConfig
	}

	line, err := s.lines.GetByID(ctx, j.LineID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrLineNotFound, j.LineID)
	}
	start, err := s.stations.GetByID(ctx, j.StartStationID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrStationNotFound, j.StartStationID)
	}
	end, err := s.stations.GetByID(ctx, j.EndStationID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrStationNotFound, j.EndStationID)
	}

	if j.DistanceKm == nil {
		d := s.DistanceAlongLine(ctx, line, start, end)
		j.DistanceKm = &d
	}

	fare := cfg.BasePricePerKm.Mul(decimal.NewFromFloat(*j.DistanceKm))
	fare = fare.Mul(line.FareMultiplier)

	regionMult, err := s.regionMultiplier(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	fare = fare.Mul(regionMult)

	if isPeakHour(j.StartTime) {
		fare = fare.Mul(cfg.PeakHourMultiplier)
	} else {
		fare = fare.Mul(cfg.OffPeakHourMultiplier)
	}

	if cfg.MinimumFare != nil && fare.LessThan(*cfg.MinimumFare) {
		fare = *cfg.MinimumFare
	}
	if cfg.MaximumFare != nil && fare.GreaterThan(*cfg.MaximumFare) {
		fare = *cfg.MaximumFare
	}

	fare = fare.Round(2)
	metrics.FaresComputed.Inc()
	return fare, nil
}

// regionMultiplier is the arithmetic mean of the two endpoint regions' price
// multipliers, rounded half-up at scale 4.
func (s *FareService) regionMultiplier(ctx context.Context, start, end *domain.Station) (decimal.Decimal, error) {
	startRegion, err := s.regions.GetByID(ctx, start.RegionID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, start.RegionID)
	}
	endRegion, err := s.regions.GetByID(ctx, end.RegionID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, end.RegionID)
	}
	return startRegion.PriceMultiplier.Add(endRegion.PriceMultiplier).Div(two).Round(4), nil
}
