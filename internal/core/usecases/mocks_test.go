package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

var errNotFound = errors.New("not found")

type mockRegionRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Region, error)
	listFn    func(ctx context.Context) ([]domain.Region, error)
}

func (m *mockRegionRepo) GetByID(ctx context.Context, id string) (*domain.Region, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockRegionRepo) List(ctx context.Context) ([]domain.Region, error) {
	return m.listFn(ctx)
}

type mockStationRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Station, error)
	listFn    func(ctx context.Context) ([]domain.Station, error)
}

func (m *mockStationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockStationRepo) List(ctx context.Context) ([]domain.Station, error) {
	return m.listFn(ctx)
}

type mockLineRepo struct {
	getByIDFn        func(ctx context.Context, id string) (*domain.Line, error)
	getByCodeFn      func(ctx context.Context, code string) (*domain.Line, error)
	listWithStations func(ctx context.Context) ([]domain.Line, error)
}

func (m *mockLineRepo) GetByID(ctx context.Context, id string) (*domain.Line, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockLineRepo) GetByCode(ctx context.Context, code string) (*domain.Line, error) {
	return m.getByCodeFn(ctx, code)
}
func (m *mockLineRepo) ListWithStations(ctx context.Context) ([]domain.Line, error) {
	return m.listWithStations(ctx)
}

type mockFareConfigRepo struct {
	getByIDFn    func(ctx context.Context, id string) (*domain.FareConfiguration, error)
	findActiveFn func(ctx context.Context, at time.Time) (*domain.FareConfiguration, error)
	listFn       func(ctx context.Context) ([]domain.FareConfiguration, error)
	createFn     func(ctx context.Context, cfg *domain.FareConfiguration) error
	activateFn   func(ctx context.Context, id string, at time.Time) error
}

func (m *mockFareConfigRepo) GetByID(ctx context.Context, id string) (*domain.FareConfiguration, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockFareConfigRepo) FindActive(ctx context.Context, at time.Time) (*domain.FareConfiguration, error) {
	return m.findActiveFn(ctx, at)
}
func (m *mockFareConfigRepo) List(ctx context.Context) ([]domain.FareConfiguration, error) {
	return m.listFn(ctx)
}
func (m *mockFareConfigRepo) Create(ctx context.Context, cfg *domain.FareConfiguration) error {
	return m.createFn(ctx, cfg)
}
func (m *mockFareConfigRepo) Activate(ctx context.Context, id string, at time.Time) error {
	return m.activateFn(ctx, id, at)
}

type mockJourneyRepo struct {
	createFn      func(ctx context.Context, j *domain.Journey) error
	getByIDFn     func(ctx context.Context, id string) (*domain.Journey, error)
	listByRiderFn func(ctx context.Context, riderID string) ([]domain.Journey, error)
	updateFn      func(ctx context.Context, j *domain.Journey) error
}

func (m *mockJourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	return m.createFn(ctx, j)
}
func (m *mockJourneyRepo) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockJourneyRepo) ListByRider(ctx context.Context, riderID string) ([]domain.Journey, error) {
	return m.listByRiderFn(ctx, riderID)
}
func (m *mockJourneyRepo) Update(ctx context.Context, j *domain.Journey) error {
	return m.updateFn(ctx, j)
}

type mockRiderRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Rider, error)
}

func (m *mockRiderRepo) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	return m.getByIDFn(ctx, id)
}

type mockLedgerRepo struct {
	getPaymentFn           func(ctx context.Context, id string) (*domain.Payment, error)
	listByRiderFn          func(ctx context.Context, riderID string) ([]domain.Payment, error)
	listByRiderAndStatusFn func(ctx context.Context, riderID string, status domain.PaymentStatus) ([]domain.Payment, error)
	listByJourneyFn        func(ctx context.Context, journeyID string) ([]domain.Payment, error)
	settleFareFn           func(ctx context.Context, p *domain.Payment, journeyID string) error
	refundFareFn           func(ctx context.Context, refund *domain.Payment, originalID string) error
	topUpFn                func(ctx context.Context, p *domain.Payment) error
}

func (m *mockLedgerRepo) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return m.getPaymentFn(ctx, id)
}
func (m *mockLedgerRepo) ListByRider(ctx context.Context, riderID string) ([]domain.Payment, error) {
	return m.listByRiderFn(ctx, riderID)
}
func (m *mockLedgerRepo) ListByRiderAndStatus(ctx context.Context, riderID string, status domain.PaymentStatus) ([]domain.Payment, error) {
	return m.listByRiderAndStatusFn(ctx, riderID, status)
}
func (m *mockLedgerRepo) ListByJourney(ctx context.Context, journeyID string) ([]domain.Payment, error) {
	return m.listByJourneyFn(ctx, journeyID)
}
func (m *mockLedgerRepo) SettleFare(ctx context.Context, p *domain.Payment, journeyID string) error {
	return m.settleFareFn(ctx, p, journeyID)
}
func (m *mockLedgerRepo) RefundFare(ctx context.Context, refund *domain.Payment, originalID string) error {
	return m.refundFareFn(ctx, refund, originalID)
}
func (m *mockLedgerRepo) TopUp(ctx context.Context, p *domain.Payment) error {
	return m.topUpFn(ctx, p)
}

type mockProvider struct {
	roadDistanceFn func(ctx context.Context, a, b domain.GeoPoint) (float64, error)
}

func (m *mockProvider) RoadDistanceKm(ctx context.Context, a, b domain.GeoPoint) (float64, error) {
	return m.roadDistanceFn(ctx, a, b)
}

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errNotFound
}
func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}
func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// --- fixtures ---------------------------------------------------------------

// testStation places a station on a synthetic grid; the pair-distance
// provider below derives distances from the coordinates.
func testStation(id string, lat, lon float64) domain.Station {
	return domain.Station{
		ID:       id,
		Name:     "Station " + id,
		Location: &domain.GeoPoint{Lat: lat, Lon: lon},
		RegionID: "r1",
		Status:   domain.StationOpen,
	}
}

// pairDistances builds a provider that answers from an explicit table keyed
// by unordered latitude pairs, so test distances are exact.
func pairDistances(table map[string]float64) *mockProvider {
	key := func(a, b domain.GeoPoint) string {
		la, lb := a.Lat, b.Lat
		if la > lb {
			la, lb = lb, la
		}
		return fmt.Sprintf("%.0f-%.0f", la, lb)
	}
	return &mockProvider{
		roadDistanceFn: func(_ context.Context, a, b domain.GeoPoint) (float64, error) {
			if d, ok := table[key(a, b)]; ok {
				return d, nil
			}
			return 0, fmt.Errorf("no distance for %s", key(a, b))
		},
	}
}

func testLine(id, code string, mult string, stations ...domain.Station) domain.Line {
	return domain.Line{
		ID:             id,
		Code:           code,
		FareMultiplier: decimal.RequireFromString(mult),
		Stations:       stations,
	}
}
