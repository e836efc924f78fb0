package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/mytransittn/transitfare/internal/core/domain"
	"github.com/mytransittn/transitfare/internal/core/ports"
	"github.com/mytransittn/transitfare/internal/core/usecases"
)

// RefundActivities holds the activity implementations for the refund workflow.
type RefundActivities struct {
	Payments *usecases.PaymentService
	Ledger   ports.LedgerRepository
	Events   ports.EventPublisher // may be nil
}

// ValidateRefundable checks that the payment exists and is a COMPLETED fare
// payment. Precondition failures are non-retryable: retrying cannot make a
// top-up refundable.
func (a *RefundActivities) ValidateRefundable(ctx context.Context, paymentID string) error {
	p, err := a.Ledger.GetPayment(ctx, paymentID)
	if err != nil {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("payment %s not found", paymentID), "PaymentNotFound", err)
	}
	if p.Type != domain.PaymentFare || p.Status != domain.PaymentCompleted {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("payment %s is %s/%s, not a refundable fare payment", paymentID, p.Type, p.Status),
			"NotRefundable", domain.ErrNotRefundable)
	}
	return nil
}

// ExecuteRefund performs the refund through the payment service.
func (a *RefundActivities) ExecuteRefund(ctx context.Context, paymentID string) (*RefundResult, error) {
	refund, err := a.Payments.RefundPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotRefundable) || errors.Is(err, domain.ErrPaymentNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("refund payment %s: %v", paymentID, err), "NotRefundable", err)
		}
		return nil, fmt.Errorf("refund payment %s: %w", paymentID, err)
	}

	journeyID := ""
	if refund.JourneyID != nil {
		journeyID = *refund.JourneyID
	}
	return &RefundResult{
		RefundID:  refund.ID,
		RiderID:   refund.RiderID,
		JourneyID: journeyID,
		Amount:    refund.Amount.StringFixed(2),
	}, nil
}

// BroadcastRefund pushes the refund outcome to connected clients.
func (a *RefundActivities) BroadcastRefund(ctx context.Context, result RefundResult) error {
	if a.Events == nil {
		return nil
	}
	data, err := json.Marshal(map[string]string{
		"event":      "payment.refunded",
		"refund_id":  result.RefundID,
		"rider_id":   result.RiderID,
		"journey_id": result.JourneyID,
		"amount":     result.Amount,
	})
	if err != nil {
		return err
	}
	return a.Events.PublishBroadcast(ctx, data)
}
