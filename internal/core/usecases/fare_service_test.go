package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fareFixture wires a FareService over a single three-station line with
// segment distances 4 km and 6 km. Clock pinned to an off-peak hour.
type fareFixture struct {
	svc  *FareService
	cfg  *domain.FareConfiguration
	line domain.Line
}

func newFareFixture(t *testing.T) *fareFixture {
	t.Helper()

	a := testStation("a", 1, 0)
	b := testStation("b", 2, 0)
	c := testStation("c", 3, 0)
	line := testLine("l1", "RED", "1.0", a, b, c)

	cfg := &domain.FareConfiguration{
		ID:                    "cfg1",
		BasePricePerKm:        dec("0.50"),
		PeakHourMultiplier:    dec("1.5"),
		OffPeakHourMultiplier: dec("1.0"),
		Status:                domain.FareConfigActive,
	}

	stations := map[string]domain.Station{"a": a, "b": b, "c": c}
	f := &fareFixture{cfg: cfg, line: line}
	f.svc = NewFareService(
		&mockFareConfigRepo{
			findActiveFn: func(context.Context, time.Time) (*domain.FareConfiguration, error) {
				return f.cfg, nil
			},
		},
		&mockLineRepo{
			getByIDFn: func(_ context.Context, id string) (*domain.Line, error) {
				if id == f.line.ID {
					return &f.line, nil
				}
				return nil, errNotFound
			},
		},
		&mockStationRepo{
			getByIDFn: func(_ context.Context, id string) (*domain.Station, error) {
				if s, ok := stations[id]; ok {
					return &s, nil
				}
				return nil, errNotFound
			},
		},
		&mockRegionRepo{
			getByIDFn: func(context.Context, string) (*domain.Region, error) {
				return &domain.Region{ID: "r1", PriceMultiplier: dec("1.0")}, nil
			},
		},
		NewDistanceService(pairDistances(map[string]float64{"1-2": 4.0, "2-3": 6.0}), nil),
	)
	// 12:00 is outside both peak windows.
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fareFixture) journey(start, end string) *domain.Journey {
	return &domain.Journey{
		ID:             "j1",
		RiderID:        "rider1",
		StartStationID: start,
		EndStationID:   end,
		LineID:         "l1",
		StartTime:      time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Status:         domain.JourneyPlanned,
	}
}

func TestComputeFareBaseCase(t *testing.T) {
	f := newFareFixture(t)
	j := f.journey("a", "c")

	fare, err := f.svc.ComputeFare(context.Background(), j)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 0.50/km * 10 km, all multipliers 1.0
	if !fare.Equal(dec("5.00")) {
		t.Errorf("expected 5.00, got %s", fare)
	}
	if j.DistanceKm == nil || *j.DistanceKm != 10.0 {
		t.Errorf("expected distance 10.0 populated, got %v", j.DistanceKm)
	}
}

func TestComputeFarePeakHour(t *testing.T) {
	f := newFareFixture(t)
	j := f.journey("a", "c")
	j.StartTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	fare, err := f.svc.ComputeFare(context.Background(), j)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fare.Equal(dec("7.50")) {
		t.Errorf("expected 7.50 at peak, got %s", fare)
	}
}

func TestComputeFarePeakWindowEndExclusive(t *testing.T) {
	f := newFareFixture(t)
	j := f.journey("a", "c")
	j.StartTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	fare, err := f.svc.ComputeFare(context.Background(), j)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fare.Equal(dec("5.00")) {
		t.Errorf("09:00 is off-peak, expected 5.00, got %s", fare)
	}
}

func TestComputeFareClamping(t *testing.T) {
	f := newFareFixture(t)

	min := dec("6.00")
	f.cfg.MinimumFare = &min
	fare, err := f.svc.ComputeFare(context.Background(), f.journey("a", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fare.Equal(min) {
		t.Errorf("expected clamp up to 6.00, got %s", fare)
	}

	f.cfg.MinimumFare = nil
	max := dec("4.00")
	f.cfg.MaximumFare = &max
	fare, err = f.svc.ComputeFare(context.Background(), f.journey("a", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fare.Equal(max) {
		t.Errorf("expected clamp down to 4.00, got %s", fare)
	}
}

func TestComputeFareLineMultiplier(t *testing.T) {
	f := newFareFixture(t)
	f.line.FareMultiplier = dec("1.2")

	fare, err := f.svc.ComputeFare(context.Background(), f.journey("a", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fare.Equal(dec("6.00")) {
		t.Errorf("expected 6.00 with line multiplier 1.2, got %s", fare)
	}
}

func TestComputeFareRegionMean(t *testing.T) {
	f := newFareFixture(t)
	// Endpoint regions 1.0 and 1.2 average to 1.1.
	multipliers := map[string]string{"a": "1.0", "c": "1.2"}
	regionOf := map[string]string{}
	f.svc.regions = &mockRegionRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Region, error) {
			return &domain.Region{ID: id, PriceMultiplier: dec(multipliers[regionOf[id]])}, nil
		},
	}
	// Stations carry region ids matching their own id for this test.
	f.svc.stations = &mockStationRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Station, error) {
			s := testStation(id, 0, 0)
			s.RegionID = id
			regionOf[id] = id
			return &s, nil
		},
	}
	// Station lookups above lose the line indices, so distance falls back to
	// the precomputed value via an explicit DistanceKm.
	j := f.journey("a", "c")
	d := 10.0
	j.DistanceKm = &d

	fare, err := f.svc.ComputeFare(context.Background(), j)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fare.Equal(dec("5.50")) {
		t.Errorf("expected 5.50 with region mean 1.1, got %s", fare)
	}
}

func TestComputeFareNoActiveConfig(t *testing.T) {
	f := newFareFixture(t)
	f.cfg = nil

	if _, err := f.svc.ComputeFare(context.Background(), f.journey("a", "c")); !errors.Is(err, domain.ErrNoActiveFareConfig) {
		t.Errorf("expected ErrNoActiveFareConfig, got %v", err)
	}
}

func TestComputeFareMonotonicInDistance(t *testing.T) {
	f := newFareFixture(t)

	short, err := f.svc.ComputeFare(context.Background(), f.journey("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	long, err := f.svc.ComputeFare(context.Background(), f.journey("a", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !short.LessThan(long) {
		t.Errorf("longer trip must not be cheaper: %s vs %s", short, long)
	}
}

func TestDistanceAlongLineDirectionAgnostic(t *testing.T) {
	f := newFareFixture(t)
	a := f.line.Stations[0]
	c := f.line.Stations[2]

	fwd := f.svc.DistanceAlongLine(context.Background(), &f.line, &a, &c)
	rev := f.svc.DistanceAlongLine(context.Background(), &f.line, &c, &a)
	if fwd != rev {
		t.Errorf("along-line distance not direction-agnostic: %v vs %v", fwd, rev)
	}
	if fwd != 10.0 {
		t.Errorf("expected 10.0, got %v", fwd)
	}
}

func TestDistanceAlongLineOffLineFallback(t *testing.T) {
	f := newFareFixture(t)
	a := f.line.Stations[0]
	z := testStation("z", 2, 0) // not on the line; lat pairs with b's row

	d := f.svc.DistanceAlongLine(context.Background(), &f.line, &a, &z)
	if d != 4.0 {
		t.Errorf("expected point-to-point fallback 4.0, got %v", d)
	}
}
