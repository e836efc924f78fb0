package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mytransittn/transitfare/internal/core/domain"
	"github.com/mytransittn/transitfare/internal/core/ports"
)

// JourneyService owns the journey lifecycle. Fare recomputation at the
// COMPLETED transition is an explicit call from here, not a persistence
// hook: what you see in this file is everything that happens.
type JourneyService struct {
	journeys ports.JourneyRepository
	stations ports.StationRepository
	lines    ports.LineRepository
	fares    *FareService
	events   ports.EventPublisher // may be nil
}

// NewJourneyService creates a JourneyService.
func NewJourneyService(
	journeys ports.JourneyRepository,
	stations ports.StationRepository,
	lines ports.LineRepository,
	fares *FareService,
	events ports.EventPublisher,
) *JourneyService {
	return &JourneyService{
		journeys: journeys,
		stations: stations,
		lines:    lines,
		fares:    fares,
		events:   events,
	}
}

// Create validates the endpoints and stores a PLANNED journey. When a line
// is assigned, distance and fare are pre-estimated so the rider can pay up
// front; the estimate is recomputed authoritatively at completion.
func (s *JourneyService) Create(ctx context.Context, riderID, startStationID, endStationID, lineID string) (*domain.Journey, error) {
	if startStationID == endStationID {
		return nil, domain.ErrSameStation
	}
	if _, err := s.stations.GetByID(ctx, startStationID); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStationNotFound, startStationID)
	}
	if _, err := s.stations.GetByID(ctx, endStationID); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStationNotFound, endStationID)
	}
	if _, err := s.lines.GetByID(ctx, lineID); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLineNotFound, lineID)
	}

	j := &domain.Journey{
		ID:             uuid.NewString(),
		RiderID:        riderID,
		StartStationID: startStationID,
		EndStationID:   endStationID,
		LineID:         lineID,
		StartTime:      time.Now(),
		Status:         domain.JourneyPlanned,
	}

	// Pre-estimate so the journey is payable immediately. Estimation failure
	// is not fatal to creation; the fare can be computed later.
	if fare, err := s.fares.ComputeFare(ctx, j); err == nil {
		j.Fare = &fare
	} else {
		slog.Warn("fare pre-estimate failed", "journey", j.ID, "error", err)
	}

	if err := s.journeys.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create journey: %w", err)
	}
	return j, nil
}

// GetByID returns a journey.
func (s *JourneyService) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	j, err := s.journeys.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrJourneyNotFound, id)
	}
	return j, nil
}

// ListByRider returns a rider's journeys.
func (s *JourneyService) ListByRider(ctx context.Context, riderID string) ([]domain.Journey, error) {
	return s.journeys.ListByRider(ctx, riderID)
}

// ComputeFare recomputes and persists the journey's distance and fare.
// Both fields are overwritten, never accumulated.
func (s *JourneyService) ComputeFare(ctx context.Context, journeyID string) (*domain.Journey, error) {
	j, err := s.GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	j.DistanceKm = nil
	fare, err := s.fares.ComputeFare(ctx, j)
	if err != nil {
		return nil, err
	}
	j.Fare = &fare

	if err := s.journeys.Update(ctx, j); err != nil {
		return nil, fmt.Errorf("update journey: %w", err)
	}
	return j, nil
}

// Start moves a PURCHASED journey to IN_PROGRESS.
func (s *JourneyService) Start(ctx context.Context, journeyID string) (*domain.Journey, error) {
	return s.transition(ctx, journeyID, domain.JourneyInProgress, nil)
}

// Complete ends the ride: status COMPLETED, endTime now, and distance/fare
// recomputed authoritatively. It never charges; payment happened at
// purchase time.
func (s *JourneyService) Complete(ctx context.Context, journeyID string) (*domain.Journey, error) {
	now := time.Now()
	j, err := s.transition(ctx, journeyID, domain.JourneyCompleted, func(j *domain.Journey) error {
		j.EndTime = &now
		j.DistanceKm = nil
		fare, err := s.fares.ComputeFare(ctx, j)
		if err != nil {
			return err
		}
		j.Fare = &fare
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		if perr := s.events.PublishJourneyCompleted(ctx, j); perr != nil {
			slog.Warn("publish journey completed failed", "journey", j.ID, "error", perr)
		}
	}
	return j, nil
}

// Cancel aborts a journey from any pre-COMPLETED state.
func (s *JourneyService) Cancel(ctx context.Context, journeyID string) (*domain.Journey, error) {
	return s.transition(ctx, journeyID, domain.JourneyCancelled, nil)
}

// transition applies a status change guarded by the transition table.
// Attempts from terminal states fail with ErrInvalidState, never a silent
// no-op.
func (s *JourneyService) transition(ctx context.Context, journeyID string, to domain.JourneyStatus, mutate func(*domain.Journey) error) (*domain.Journey, error) {
	j, err := s.GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(j.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, j.Status, to)
	}

	if mutate != nil {
		if err := mutate(j); err != nil {
			return nil, err
		}
	}
	j.Status = to

	if err := s.journeys.Update(ctx, j); err != nil {
		return nil, fmt.Errorf("update journey: %w", err)
	}
	return j, nil
}
