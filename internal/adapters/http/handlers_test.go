package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	handler "github.com/mytransittn/transitfare/internal/adapters/http"
	"github.com/mytransittn/transitfare/internal/core/domain"
	"github.com/mytransittn/transitfare/internal/core/usecases"
)

// ---- Mock repositories ----

type mockRegionRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Region, error)
	listFn    func(ctx context.Context) ([]domain.Region, error)
}

func (m *mockRegionRepo) GetByID(ctx context.Context, id string) (*domain.Region, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Region{ID: id, PriceMultiplier: decimal.NewFromInt(1)}, nil
}
func (m *mockRegionRepo) List(ctx context.Context) ([]domain.Region, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockStationRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Station, error)
	listFn    func(ctx context.Context) ([]domain.Station, error)
}

func (m *mockStationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockStationRepo) List(ctx context.Context) ([]domain.Station, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockLineRepo struct {
	getByIDFn        func(ctx context.Context, id string) (*domain.Line, error)
	getByCodeFn      func(ctx context.Context, code string) (*domain.Line, error)
	listWithStations func(ctx context.Context) ([]domain.Line, error)
}

func (m *mockLineRepo) GetByID(ctx context.Context, id string) (*domain.Line, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockLineRepo) GetByCode(ctx context.Context, code string) (*domain.Line, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockLineRepo) ListWithStations(ctx context.Context) ([]domain.Line, error) {
	if m.listWithStations != nil {
		return m.listWithStations(ctx)
	}
	return nil, nil
}

type mockFareConfigRepo struct {
	findActiveFn func(ctx context.Context, at time.Time) (*domain.FareConfiguration, error)
}

func (m *mockFareConfigRepo) GetByID(ctx context.Context, id string) (*domain.FareConfiguration, error) {
	return nil, fmt.Errorf("not found")
}
func (m *mockFareConfigRepo) FindActive(ctx context.Context, at time.Time) (*domain.FareConfiguration, error) {
	if m.findActiveFn != nil {
		return m.findActiveFn(ctx, at)
	}
	return nil, nil
}
func (m *mockFareConfigRepo) List(ctx context.Context) ([]domain.FareConfiguration, error) {
	return nil, nil
}
func (m *mockFareConfigRepo) Create(ctx context.Context, cfg *domain.FareConfiguration) error {
	return nil
}
func (m *mockFareConfigRepo) Activate(ctx context.Context, id string, at time.Time) error {
	return nil
}

type mockJourneyRepo struct {
	store map[string]*domain.Journey
}

func (m *mockJourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	m.store[j.ID] = j
	return nil
}
func (m *mockJourneyRepo) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	if j, ok := m.store[id]; ok {
		return j, nil
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockJourneyRepo) ListByRider(ctx context.Context, riderID string) ([]domain.Journey, error) {
	var out []domain.Journey
	for _, j := range m.store {
		if j.RiderID == riderID {
			out = append(out, *j)
		}
	}
	return out, nil
}
func (m *mockJourneyRepo) Update(ctx context.Context, j *domain.Journey) error {
	m.store[j.ID] = j
	return nil
}

type mockRiderRepo struct{}

func (m *mockRiderRepo) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	return &domain.Rider{ID: id, Balance: decimal.NewFromInt(100)}, nil
}

type mockLedgerRepo struct{}

func (m *mockLedgerRepo) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return nil, fmt.Errorf("not found")
}
func (m *mockLedgerRepo) ListByRider(ctx context.Context, riderID string) ([]domain.Payment, error) {
	return nil, nil
}
func (m *mockLedgerRepo) ListByRiderAndStatus(ctx context.Context, riderID string, status domain.PaymentStatus) ([]domain.Payment, error) {
	return nil, nil
}
func (m *mockLedgerRepo) ListByJourney(ctx context.Context, journeyID string) ([]domain.Payment, error) {
	return nil, nil
}
func (m *mockLedgerRepo) SettleFare(ctx context.Context, p *domain.Payment, journeyID string) error {
	return nil
}
func (m *mockLedgerRepo) RefundFare(ctx context.Context, refund *domain.Payment, originalID string) error {
	return nil
}
func (m *mockLedgerRepo) TopUp(ctx context.Context, p *domain.Payment) error { return nil }

// ---- Test helpers ----

func station(id string, lat, lon float64) domain.Station {
	return domain.Station{
		ID:       id,
		Name:     "Station " + strings.ToUpper(id),
		Location: &domain.GeoPoint{Lat: lat, Lon: lon},
		RegionID: "r1",
		Status:   domain.StationOpen,
	}
}

func activeConfig() *domain.FareConfiguration {
	return &domain.FareConfiguration{
		ID:                    "cfg1",
		BasePricePerKm:        decimal.RequireFromString("0.50"),
		PeakHourMultiplier:    decimal.RequireFromString("1.5"),
		OffPeakHourMultiplier: decimal.NewFromInt(1),
		Status:                domain.FareConfigActive,
	}
}

// makeDeps wires the full service stack over a three-station line a-b-c.
func makeDeps(t *testing.T, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	t.Helper()

	a := station("a", 36.80, 10.18)
	b := station("b", 36.84, 10.20)
	c := station("c", 36.90, 10.24)
	line := domain.Line{
		ID:             "l1",
		Code:           "RED",
		FareMultiplier: decimal.NewFromInt(1),
		Stations:       []domain.Station{a, b, c},
	}
	stations := map[string]domain.Station{"a": a, "b": b, "c": c}

	stationRepo := &mockStationRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Station, error) {
			if s, ok := stations[id]; ok {
				return &s, nil
			}
			return nil, fmt.Errorf("not found")
		},
		listFn: func(context.Context) ([]domain.Station, error) {
			return []domain.Station{a, b, c}, nil
		},
	}
	lineRepo := &mockLineRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Line, error) {
			if id == "l1" {
				return &line, nil
			}
			return nil, fmt.Errorf("not found")
		},
		listWithStations: func(context.Context) ([]domain.Line, error) {
			return []domain.Line{line}, nil
		},
	}
	configRepo := &mockFareConfigRepo{
		findActiveFn: func(context.Context, time.Time) (*domain.FareConfiguration, error) {
			return activeConfig(), nil
		},
	}
	regionRepo := &mockRegionRepo{}
	journeyRepo := &mockJourneyRepo{store: map[string]*domain.Journey{}}

	distances := usecases.NewDistanceService(nil, nil)
	routing := usecases.NewRoutingService(lineRepo, distances)
	if err := routing.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	fares := usecases.NewFareService(configRepo, lineRepo, stationRepo, regionRepo, distances)

	d := &handler.Dependencies{
		Regions:     regionRepo,
		Stations:    stationRepo,
		Lines:       lineRepo,
		Routing:     routing,
		Distances:   distances,
		Fares:       fares,
		FareConfigs: usecases.NewFareConfigService(configRepo, nil),
		Journeys:    usecases.NewJourneyService(journeyRepo, stationRepo, lineRepo, fares, nil),
		Payments:    usecases.NewPaymentService(&mockLedgerRepo{}, journeyRepo, &mockRiderRepo{}, nil),
		Validate:    validator.New(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

// ---- Station endpoints ----

func TestListStations(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("GET", "/v1/stations", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Station `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 3 {
		t.Errorf("expected total 3, got %d", result.Pagination.Total)
	}
}

func TestGetStation_NotFound(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("GET", "/v1/stations/nope", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Route planning endpoints ----

func TestPlanRoute_Direct(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("GET", "/v1/routes/plan?from=a&to=c", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var route domain.Route
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		t.Fatal(err)
	}
	if len(route.Segments) != 1 {
		t.Errorf("expected one direct segment, got %d", len(route.Segments))
	}
	if route.TotalDistanceKm <= 0 {
		t.Errorf("expected positive distance, got %v", route.TotalDistanceKm)
	}
}

func TestPlanRoute_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("GET", "/v1/routes/plan?from=a", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestTopologyRoute_SameStation(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("GET", "/v1/routes/topology?from=a&to=a", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Journey endpoints ----

func TestCreateJourney(t *testing.T) {
	app := setupApp(makeDeps(t))

	body := strings.NewReader(`{"start_station_id":"a","end_station_id":"c","line_id":"l1"}`)
	req := httptest.NewRequest("POST", "/v1/journeys", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Rider-ID", "rider1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var j domain.Journey
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		t.Fatal(err)
	}
	if j.Status != domain.JourneyPlanned {
		t.Errorf("expected PLANNED, got %s", j.Status)
	}
	if j.Fare == nil {
		t.Error("expected pre-estimated fare")
	}
}

func TestCreateJourney_NoRider(t *testing.T) {
	app := setupApp(makeDeps(t))

	body := strings.NewReader(`{"start_station_id":"a","end_station_id":"c","line_id":"l1"}`)
	req := httptest.NewRequest("POST", "/v1/journeys", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateJourney_MissingFields(t *testing.T) {
	app := setupApp(makeDeps(t))

	body := strings.NewReader(`{"start_station_id":"a"}`)
	req := httptest.NewRequest("POST", "/v1/journeys", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Rider-ID", "rider1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Payment endpoints ----

func TestTopUp_InvalidAmount(t *testing.T) {
	app := setupApp(makeDeps(t))

	body := strings.NewReader(`{"amount":"-5.00"}`)
	req := httptest.NewRequest("POST", "/v1/payments/topup", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Rider-ID", "rider1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListPayments_NoRider(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("GET", "/v1/payments", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

// ---- Fare configuration endpoints ----

func TestActiveFareConfig_NoneActive(t *testing.T) {
	deps := makeDeps(t, func(d *handler.Dependencies) {
		d.FareConfigs = usecases.NewFareConfigService(&mockFareConfigRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/fares/active", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 412 {
		t.Fatalf("expected 412, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_Stations(t *testing.T) {
	app := setupApp(makeDeps(t))

	body := strings.NewReader(`{"query":"{ stations { id name } }"}`)
	req := httptest.NewRequest("POST", "/graphql", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Stations []struct {
				ID string `json:"id"`
			} `json:"stations"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data.Stations) != 3 {
		t.Errorf("expected 3 stations, got %d", len(result.Data.Stations))
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
