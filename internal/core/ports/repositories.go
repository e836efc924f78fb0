package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// RegionRepository reads pricing regions.
type RegionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Region, error)
	List(ctx context.Context) ([]domain.Region, error)
}

// StationRepository reads stations.
type StationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Station, error)
	List(ctx context.Context) ([]domain.Station, error)
}

// LineRepository reads lines. ListWithStations returns every line with its
// full ordered station sequence, the snapshot the graph builder consumes.
type LineRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Line, error)
	GetByCode(ctx context.Context, code string) (*domain.Line, error)
	ListWithStations(ctx context.Context) ([]domain.Line, error)
}

// FareConfigRepository persists pricing snapshots. Activate must deactivate
// the previously active configuration and activate the new one as a single
// atomic unit; no instant may observe zero or two active configs.
type FareConfigRepository interface {
	GetByID(ctx context.Context, id string) (*domain.FareConfiguration, error)
	FindActive(ctx context.Context, at time.Time) (*domain.FareConfiguration, error)
	List(ctx context.Context) ([]domain.FareConfiguration, error)
	Create(ctx context.Context, cfg *domain.FareConfiguration) error
	Activate(ctx context.Context, id string, at time.Time) error
}

// JourneyRepository persists journeys.
type JourneyRepository interface {
	Create(ctx context.Context, j *domain.Journey) error
	GetByID(ctx context.Context, id string) (*domain.Journey, error)
	ListByRider(ctx context.Context, riderID string) ([]domain.Journey, error)
	Update(ctx context.Context, j *domain.Journey) error
}

// RiderRepository reads rider accounts. Balance writes happen only through
// LedgerRepository settlement calls.
type RiderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Rider, error)
}

// LedgerRepository persists payments and applies balance mutations. The three
// settlement methods each commit all their effects in one storage transaction
// or none at all; they re-check their guards under row locks so concurrent
// callers cannot double-spend even if the service-level checks raced.
type LedgerRepository interface {
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	ListByRider(ctx context.Context, riderID string) ([]domain.Payment, error)
	ListByRiderAndStatus(ctx context.Context, riderID string, status domain.PaymentStatus) ([]domain.Payment, error)
	ListByJourney(ctx context.Context, journeyID string) ([]domain.Payment, error)

	// SettleFare atomically inserts the COMPLETED fare payment, debits the
	// rider's balance by p.Amount, and advances the journey to PURCHASED.
	// Fails with domain.ErrAlreadyPaid or domain.ErrInsufficientBalance
	// without any partial effect.
	SettleFare(ctx context.Context, p *domain.Payment, journeyID string) error

	// RefundFare atomically marks the original payment REFUNDED, credits the
	// rider's balance by its amount, and inserts the REFUND record.
	RefundFare(ctx context.Context, refund *domain.Payment, originalID string) error

	// TopUp atomically inserts the BALANCE_TOPUP record and credits the
	// rider's balance.
	TopUp(ctx context.Context, p *domain.Payment) error
}

// BalanceReader exposes the current balance for settlement precondition
// checks.
type BalanceReader interface {
	Balance(ctx context.Context, riderID string) (decimal.Decimal, error)
}
