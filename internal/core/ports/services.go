package ports

import (
	"context"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// DistanceProvider is an external distance-matrix lookup. Implementations
// must bound their own latency; any error is recovered by the local formula
// and never propagated to routing or fare computation.
type DistanceProvider interface {
	RoadDistanceKm(ctx context.Context, a, b domain.GeoPoint) (float64, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes domain events to a message broker. Publishing is
// best-effort from the caller's perspective: settlement never rolls back
// because an event could not be emitted.
type EventPublisher interface {
	PublishPaymentSettled(ctx context.Context, p *domain.Payment) error
	PublishPaymentRefunded(ctx context.Context, p *domain.Payment) error
	PublishJourneyCompleted(ctx context.Context, j *domain.Journey) error
	PublishFareConfigActivated(ctx context.Context, cfg *domain.FareConfiguration) error
	PublishBroadcast(ctx context.Context, data []byte) error
}
