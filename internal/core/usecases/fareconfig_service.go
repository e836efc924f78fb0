package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mytransittn/transitfare/internal/core/domain"
	"github.com/mytransittn/transitfare/internal/core/ports"
)

// FareConfigService manages pricing snapshots. Activation is the one shared
// mutable resource in fare computation: swapping the active configuration is
// serialized here and applied atomically by the repository, so no instant
// observes zero or two active configs.
type FareConfigService struct {
	configs ports.FareConfigRepository
	events  ports.EventPublisher // may be nil

	activateMu sync.Mutex
}

// NewFareConfigService creates a FareConfigService.
func NewFareConfigService(configs ports.FareConfigRepository, events ports.EventPublisher) *FareConfigService {
	return &FareConfigService{configs: configs, events: events}
}

// Active resolves the configuration in force right now.
func (s *FareConfigService) Active(ctx context.Context) (*domain.FareConfiguration, error) {
	cfg, err := s.configs.FindActive(ctx, time.Now())
	if err != nil || cfg == nil {
		return nil, domain.ErrNoActiveFareConfig
	}
	return cfg, nil
}

// List returns all configurations (admin surface).
func (s *FareConfigService) List(ctx context.Context) ([]domain.FareConfiguration, error) {
	return s.configs.List(ctx)
}

// GetByID returns one configuration.
func (s *FareConfigService) GetByID(ctx context.Context, id string) (*domain.FareConfiguration, error) {
	cfg, err := s.configs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFareConfigNotFound, id)
	}
	return cfg, nil
}

// Create stores a new configuration in SCHEDULED or INACTIVE state; it never
// creates one directly as ACTIVE (that goes through Activate).
func (s *FareConfigService) Create(ctx context.Context, cfg *domain.FareConfiguration) error {
	if cfg.Status == domain.FareConfigActive {
		cfg.Status = domain.FareConfigScheduled
	}
	return s.configs.Create(ctx, cfg)
}

// Activate makes the given configuration the single active one, deactivating
// the prior active configuration in the same storage transaction.
func (s *FareConfigService) Activate(ctx context.Context, id string) (*domain.FareConfiguration, error) {
	s.activateMu.Lock()
	defer s.activateMu.Unlock()

	if _, err := s.configs.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFareConfigNotFound, id)
	}

	if err := s.configs.Activate(ctx, id, time.Now()); err != nil {
		return nil, fmt.Errorf("activate fare config: %w", err)
	}

	cfg, err := s.configs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.Info("fare configuration activated", "id", id)
	if s.events != nil {
		if err := s.events.PublishFareConfigActivated(ctx, cfg); err != nil {
			slog.Warn("publish fare config activation failed", "error", err)
		}
	}
	return cfg, nil
}
