package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mytransittn/transitfare/internal/core/domain"
	"github.com/mytransittn/transitfare/internal/core/ports"
	"github.com/mytransittn/transitfare/internal/pkg/metrics"
)

// journeyLocks serializes settlement per journey id so two concurrent pay
// requests for the same journey never both pass the precondition checks.
// The storage layer re-checks under row locks anyway; this keeps the common
// double-submit case from ever reaching the database twice.
type journeyLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newJourneyLocks() *journeyLocks {
	return &journeyLocks{locks: make(map[string]*lockEntry)}
}

func (l *journeyLocks) lock(key string) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// PaymentService settles fares, refunds, and balance top-ups against the
// rider ledger. Each settlement is exactly-once: the payment record, the
// balance mutation, and (for fares) the journey status advance commit
// together or not at all.
type PaymentService struct {
	ledger   ports.LedgerRepository
	journeys ports.JourneyRepository
	riders   ports.RiderRepository
	events   ports.EventPublisher // may be nil

	settling *journeyLocks
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(
	ledger ports.LedgerRepository,
	journeys ports.JourneyRepository,
	riders ports.RiderRepository,
	events ports.EventPublisher,
) *PaymentService {
	return &PaymentService{
		ledger:   ledger,
		journeys: journeys,
		riders:   riders,
		events:   events,
		settling: newJourneyLocks(),
	}
}

// newTransactionRef mints a unique uppercase reference for a ledger entry.
func newTransactionRef() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

// PayForJourney charges the journey's computed fare to the rider's balance
// and advances the journey to PURCHASED. Preconditions, checked in order:
// the journey is PLANNED, its fare is computed, no non-refunded fare payment
// exists for it, and the rider's balance covers the fare. All three effects
// land in one storage transaction.
func (s *PaymentService) PayForJourney(ctx context.Context, journeyID, riderID string) (*domain.Payment, error) {
	unlock := s.settling.lock(journeyID)
	defer unlock()

	j, err := s.journeys.GetByID(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrJourneyNotFound, journeyID)
	}
	if j.RiderID != riderID {
		return nil, fmt.Errorf("%w: %s", domain.ErrJourneyNotFound, journeyID)
	}

	if j.Status != domain.JourneyPlanned {
		metrics.PaymentsFailed.WithLabelValues("invalid_state").Inc()
		return nil, fmt.Errorf("%w: journey is %s", domain.ErrInvalidState, j.Status)
	}
	if j.Fare == nil {
		metrics.PaymentsFailed.WithLabelValues("fare_not_computed").Inc()
		return nil, domain.ErrFareNotComputed
	}

	existing, err := s.ledger.ListByJourney(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("list journey payments: %w", err)
	}
	for i := range existing {
		if existing[i].Type == domain.PaymentFare && existing[i].Status != domain.PaymentRefunded {
			metrics.PaymentsFailed.WithLabelValues("already_paid").Inc()
			return nil, domain.ErrAlreadyPaid
		}
	}

	rider, err := s.riders.GetByID(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("get rider %s: %w", riderID, err)
	}
	if rider.Balance.LessThan(*j.Fare) {
		metrics.PaymentsFailed.WithLabelValues("insufficient_balance").Inc()
		return nil, fmt.Errorf("%w: balance %s, fare %s",
			domain.ErrInsufficientBalance, rider.Balance, j.Fare)
	}

	p := &domain.Payment{
		ID:              uuid.NewString(),
		Amount:          *j.Fare,
		TransactionTime: time.Now(),
		Type:            domain.PaymentFare,
		Status:          domain.PaymentCompleted,
		RiderID:         riderID,
		JourneyID:       &journeyID,
		TransactionRef:  newTransactionRef(),
	}

	if err := s.ledger.SettleFare(ctx, p, journeyID); err != nil {
		metrics.PaymentsFailed.WithLabelValues("settle").Inc()
		return nil, err
	}
	metrics.PaymentsSettled.Inc()
	slog.Info("fare settled",
		"payment", p.ID, "journey", journeyID, "rider", riderID, "amount", p.Amount)

	if s.events != nil {
		if perr := s.events.PublishPaymentSettled(ctx, p); perr != nil {
			slog.Warn("publish payment settled failed", "payment", p.ID, "error", perr)
		}
	}
	return p, nil
}

// RefundPayment reverses a COMPLETED fare payment: the original is marked
// REFUNDED, the rider's balance is credited the exact amount, and a REFUND
// ledger entry is inserted, all in one transaction. The journey itself is left
// untouched; the ride happened.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	orig, err := s.ledger.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentNotFound, paymentID)
	}
	if orig.Type != domain.PaymentFare || orig.Status != domain.PaymentCompleted {
		return nil, fmt.Errorf("%w: %s payment in status %s",
			domain.ErrNotRefundable, orig.Type, orig.Status)
	}

	if orig.JourneyID != nil {
		unlock := s.settling.lock(*orig.JourneyID)
		defer unlock()
	}

	refund := &domain.Payment{
		ID:              uuid.NewString(),
		Amount:          orig.Amount,
		TransactionTime: time.Now(),
		Type:            domain.PaymentRefund,
		Status:          domain.PaymentCompleted,
		RiderID:         orig.RiderID,
		JourneyID:       orig.JourneyID,
		TransactionRef:  newTransactionRef(),
	}

	if err := s.ledger.RefundFare(ctx, refund, orig.ID); err != nil {
		metrics.PaymentsFailed.WithLabelValues("refund").Inc()
		return nil, err
	}
	metrics.PaymentsRefunded.Inc()
	slog.Info("payment refunded",
		"payment", orig.ID, "refund", refund.ID, "rider", orig.RiderID, "amount", refund.Amount)

	if s.events != nil {
		if perr := s.events.PublishPaymentRefunded(ctx, refund); perr != nil {
			slog.Warn("publish payment refunded failed", "payment", refund.ID, "error", perr)
		}
	}
	return refund, nil
}

// TopUp credits the rider's balance. The amount must be strictly positive.
func (s *PaymentService) TopUp(ctx context.Context, riderID string, amount decimal.Decimal) (*domain.Payment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}
	if _, err := s.riders.GetByID(ctx, riderID); err != nil {
		return nil, fmt.Errorf("get rider %s: %w", riderID, err)
	}

	p := &domain.Payment{
		ID:              uuid.NewString(),
		Amount:          amount,
		TransactionTime: time.Now(),
		Type:            domain.PaymentTopup,
		Status:          domain.PaymentCompleted,
		RiderID:         riderID,
		TransactionRef:  newTransactionRef(),
	}
	if err := s.ledger.TopUp(ctx, p); err != nil {
		return nil, err
	}
	slog.Info("balance topped up", "payment", p.ID, "rider", riderID, "amount", amount)
	return p, nil
}

// GetPayment returns one ledger entry.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := s.ledger.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentNotFound, id)
	}
	return p, nil
}

// ListByRider returns a rider's ledger, optionally filtered by status.
func (s *PaymentService) ListByRider(ctx context.Context, riderID string, status domain.PaymentStatus) ([]domain.Payment, error) {
	if status != "" {
		return s.ledger.ListByRiderAndStatus(ctx, riderID, status)
	}
	return s.ledger.ListByRider(ctx, riderID)
}

// ListByJourney returns all ledger entries referencing a journey.
func (s *PaymentService) ListByJourney(ctx context.Context, journeyID string) ([]domain.Payment, error) {
	return s.ledger.ListByJourney(ctx, journeyID)
}
