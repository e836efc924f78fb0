package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// journeyFixture wires a JourneyService over an in-memory journey store and
// the standard three-station fare fixture.
type journeyFixture struct {
	svc   *JourneyService
	store map[string]*domain.Journey
}

func newJourneyFixture(t *testing.T) *journeyFixture {
	t.Helper()

	ff := newFareFixture(t)
	store := map[string]*domain.Journey{}

	journeys := &mockJourneyRepo{
		createFn: func(_ context.Context, j *domain.Journey) error {
			cp := *j
			store[j.ID] = &cp
			return nil
		},
		getByIDFn: func(_ context.Context, id string) (*domain.Journey, error) {
			if j, ok := store[id]; ok {
				cp := *j
				return &cp, nil
			}
			return nil, errNotFound
		},
		updateFn: func(_ context.Context, j *domain.Journey) error {
			cp := *j
			store[j.ID] = &cp
			return nil
		},
		listByRiderFn: func(_ context.Context, riderID string) ([]domain.Journey, error) {
			var out []domain.Journey
			for _, j := range store {
				if j.RiderID == riderID {
					out = append(out, *j)
				}
			}
			return out, nil
		},
	}

	stations := &mockStationRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Station, error) {
			switch id {
			case "a", "b", "c":
				s := testStation(id, 0, 0)
				return &s, nil
			}
			return nil, errNotFound
		},
	}
	lines := &mockLineRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Line, error) {
			if id == "l1" {
				return &ff.line, nil
			}
			return nil, errNotFound
		},
	}

	return &journeyFixture{
		svc:   NewJourneyService(journeys, stations, lines, ff.svc, nil),
		store: store,
	}
}

func (f *journeyFixture) seed(status domain.JourneyStatus) *domain.Journey {
	fare := dec("5.00")
	d := 10.0
	j := &domain.Journey{
		ID:             "j-" + string(status),
		RiderID:        "rider1",
		StartStationID: "a",
		EndStationID:   "c",
		LineID:         "l1",
		StartTime:      time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Status:         status,
		DistanceKm:     &d,
		Fare:           &fare,
	}
	f.store[j.ID] = j
	return j
}

func TestCreateJourney(t *testing.T) {
	f := newJourneyFixture(t)

	j, err := f.svc.Create(context.Background(), "rider1", "a", "c", "l1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Status != domain.JourneyPlanned {
		t.Errorf("new journey must be PLANNED, got %s", j.Status)
	}
	if j.Fare == nil {
		t.Error("expected pre-estimated fare")
	} else if !j.Fare.Equal(dec("5.00")) {
		t.Errorf("expected estimate 5.00, got %s", j.Fare)
	}
	if _, ok := f.store[j.ID]; !ok {
		t.Error("journey not persisted")
	}
}

func TestCreateJourneySameStation(t *testing.T) {
	f := newJourneyFixture(t)

	if _, err := f.svc.Create(context.Background(), "rider1", "a", "a", "l1"); !errors.Is(err, domain.ErrSameStation) {
		t.Errorf("expected ErrSameStation, got %v", err)
	}
}

func TestCreateJourneyUnknownStation(t *testing.T) {
	f := newJourneyFixture(t)

	if _, err := f.svc.Create(context.Background(), "rider1", "a", "nope", "l1"); !errors.Is(err, domain.ErrStationNotFound) {
		t.Errorf("expected ErrStationNotFound, got %v", err)
	}
}

func TestCreateJourneyUnknownLine(t *testing.T) {
	f := newJourneyFixture(t)

	if _, err := f.svc.Create(context.Background(), "rider1", "a", "c", "nope"); !errors.Is(err, domain.ErrLineNotFound) {
		t.Errorf("expected ErrLineNotFound, got %v", err)
	}
}

func TestJourneyTransitions(t *testing.T) {
	cases := []struct {
		name string
		from domain.JourneyStatus
		op   func(*JourneyService, string) error
		want error
	}{
		{"start from purchased", domain.JourneyPurchased, start, nil},
		{"start from planned", domain.JourneyPlanned, start, domain.ErrInvalidState},
		{"start from completed", domain.JourneyCompleted, start, domain.ErrInvalidState},
		{"complete from purchased", domain.JourneyPurchased, complete, nil},
		{"complete from in progress", domain.JourneyInProgress, complete, nil},
		{"complete from planned", domain.JourneyPlanned, complete, domain.ErrInvalidState},
		{"complete from cancelled", domain.JourneyCancelled, complete, domain.ErrInvalidState},
		{"cancel from planned", domain.JourneyPlanned, cancel, nil},
		{"cancel from purchased", domain.JourneyPurchased, cancel, nil},
		{"cancel from in progress", domain.JourneyInProgress, cancel, nil},
		{"cancel from completed", domain.JourneyCompleted, cancel, domain.ErrInvalidState},
		{"cancel from cancelled", domain.JourneyCancelled, cancel, domain.ErrInvalidState},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newJourneyFixture(t)
			j := f.seed(tc.from)

			err := tc.op(f.svc, j.ID)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want != nil && f.store[j.ID].Status != tc.from {
				t.Errorf("failed transition must not change status: %s", f.store[j.ID].Status)
			}
		})
	}
}

func start(s *JourneyService, id string) error {
	_, err := s.Start(context.Background(), id)
	return err
}

func complete(s *JourneyService, id string) error {
	_, err := s.Complete(context.Background(), id)
	return err
}

func cancel(s *JourneyService, id string) error {
	_, err := s.Cancel(context.Background(), id)
	return err
}

func TestCompleteSetsEndTimeAndRecomputesFare(t *testing.T) {
	f := newJourneyFixture(t)
	j := f.seed(domain.JourneyInProgress)
	stale := dec("99.99")
	f.store[j.ID].Fare = &stale

	got, err := f.svc.Complete(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.JourneyCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
	if got.EndTime == nil {
		t.Error("expected end time set")
	}
	if got.Fare == nil || !got.Fare.Equal(dec("5.00")) {
		t.Errorf("expected fare recomputed to 5.00, got %v", got.Fare)
	}
}

func TestComputeFareOverwritesPreviousValues(t *testing.T) {
	f := newJourneyFixture(t)
	j := f.seed(domain.JourneyPlanned)
	staleDist := 42.0
	f.store[j.ID].DistanceKm = &staleDist

	got, err := f.svc.ComputeFare(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DistanceKm == nil || *got.DistanceKm != 10.0 {
		t.Errorf("expected distance recomputed to 10.0, got %v", got.DistanceKm)
	}
	if got.Fare == nil || !got.Fare.Equal(dec("5.00")) {
		t.Errorf("expected fare 5.00, got %v", got.Fare)
	}
}
