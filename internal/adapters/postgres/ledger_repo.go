package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// LedgerRepo implements ports.LedgerRepository. The settlement methods take
// row locks and re-check their guards inside the transaction, so two racing
// callers serialize at the database even if the service-level checks passed
// for both.
type LedgerRepo struct {
	db *DB
}

func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

const paymentColumns = `
	id, amount, transaction_time, type, status, rider_id, journey_id, transaction_ref`

func scanPayment(row interface{ Scan(...any) error }) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.Amount, &p.TransactionTime, &p.Type, &p.Status,
		&p.RiderID, &p.JourneyID, &p.TransactionRef,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *LedgerRepo) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return scanPayment(r.db.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1
	`, id))
}

func (r *LedgerRepo) ListByRider(ctx context.Context, riderID string) ([]domain.Payment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+`
		FROM payments WHERE rider_id = $1
		ORDER BY transaction_time DESC
	`, riderID)
}

func (r *LedgerRepo) ListByRiderAndStatus(ctx context.Context, riderID string, status domain.PaymentStatus) ([]domain.Payment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+`
		FROM payments WHERE rider_id = $1 AND status = $2
		ORDER BY transaction_time DESC
	`, riderID, status)
}

func (r *LedgerRepo) ListByJourney(ctx context.Context, journeyID string) ([]domain.Payment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+`
		FROM payments WHERE journey_id = $1
		ORDER BY transaction_time
	`, journeyID)
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// SettleFare inserts the fare payment, debits the rider, and advances the
// journey to PURCHASED in one transaction.
func (r *LedgerRepo) SettleFare(ctx context.Context, p *domain.Payment, journeyID string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Lock the journey row and re-check its state.
	var status domain.JourneyStatus
	if err := tx.QueryRow(ctx, `
		SELECT status FROM journeys WHERE id = $1 FOR UPDATE
	`, journeyID).Scan(&status); err != nil {
		if isNoRows(err) {
			return domain.ErrJourneyNotFound
		}
		return err
	}
	if status != domain.JourneyPlanned {
		return fmt.Errorf("%w: journey is %s", domain.ErrInvalidState, status)
	}

	var alreadyPaid bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE journey_id = $1 AND type = 'FARE_PAYMENT' AND status <> 'REFUNDED'
		)
	`, journeyID).Scan(&alreadyPaid); err != nil {
		return err
	}
	if alreadyPaid {
		return domain.ErrAlreadyPaid
	}

	// Lock the rider row and re-check funds.
	var balance decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT balance FROM riders WHERE id = $1 FOR UPDATE
	`, p.RiderID).Scan(&balance); err != nil {
		return err
	}
	if balance.LessThan(p.Amount) {
		return fmt.Errorf("%w: balance %s, fare %s", domain.ErrInsufficientBalance, balance, p.Amount)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (
			id, amount, transaction_time, type, status,
			rider_id, journey_id, transaction_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Amount, p.TransactionTime, p.Type, p.Status,
		p.RiderID, p.JourneyID, p.TransactionRef); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE riders SET balance = balance - $2 WHERE id = $1
	`, p.RiderID, p.Amount); err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE journeys SET status = 'PURCHASED' WHERE id = $1
	`, journeyID); err != nil {
		return fmt.Errorf("advance journey: %w", err)
	}

	return tx.Commit(ctx)
}

// RefundFare marks the original payment REFUNDED, credits the rider, and
// inserts the refund record in one transaction.
func (r *LedgerRepo) RefundFare(ctx context.Context, refund *domain.Payment, originalID string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var pType domain.PaymentType
	var pStatus domain.PaymentStatus
	if err := tx.QueryRow(ctx, `
		SELECT type, status FROM payments WHERE id = $1 FOR UPDATE
	`, originalID).Scan(&pType, &pStatus); err != nil {
		if isNoRows(err) {
			return domain.ErrPaymentNotFound
		}
		return err
	}
	if pType != domain.PaymentFare || pStatus != domain.PaymentCompleted {
		return fmt.Errorf("%w: %s payment in status %s", domain.ErrNotRefundable, pType, pStatus)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payments SET status = 'REFUNDED' WHERE id = $1
	`, originalID); err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE riders SET balance = balance + $2 WHERE id = $1
	`, refund.RiderID, refund.Amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (
			id, amount, transaction_time, type, status,
			rider_id, journey_id, transaction_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, refund.ID, refund.Amount, refund.TransactionTime, refund.Type, refund.Status,
		refund.RiderID, refund.JourneyID, refund.TransactionRef); err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}

	return tx.Commit(ctx)
}

// TopUp inserts the top-up record and credits the rider in one transaction.
func (r *LedgerRepo) TopUp(ctx context.Context, p *domain.Payment) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (
			id, amount, transaction_time, type, status,
			rider_id, journey_id, transaction_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Amount, p.TransactionTime, p.Type, p.Status,
		p.RiderID, p.JourneyID, p.TransactionRef); err != nil {
		return fmt.Errorf("insert top-up: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE riders SET balance = balance + $2 WHERE id = $1
	`, p.RiderID, p.Amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	return tx.Commit(ctx)
}
