package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RefundInput is the input for the refund workflow.
type RefundInput struct {
	PaymentID string
	Reason    string
}

// RefundResult summarizes a completed refund for the workflow caller.
type RefundResult struct {
	RefundID  string
	RiderID   string
	JourneyID string
	Amount    string
}

// RefundWorkflow orchestrates refunding a settled fare payment: validate the
// payment is refundable, execute the refund against the ledger, then notify
// listeners. The refund itself is atomic inside the ledger; a failed
// notification is retried but never rolls the refund back, so a payment is
// refunded at most once no matter how often the workflow is replayed.
func RefundWorkflow(ctx workflow.Context, input RefundInput) (*RefundResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting refund workflow", "paymentID", input.PaymentID, "reason", input.Reason)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Check the payment is a COMPLETED fare payment
	err := workflow.ExecuteActivity(ctx, "ValidateRefundable", input.PaymentID).Get(ctx, nil)
	if err != nil {
		return nil, err
	}

	// Step 2: Execute the refund. The ledger re-checks refundability under a
	// row lock, so a workflow retry after a successful-but-unacked attempt
	// fails cleanly instead of refunding twice.
	var result RefundResult
	err = workflow.ExecuteActivity(ctx, "ExecuteRefund", input.PaymentID).Get(ctx, &result)
	if err != nil {
		return nil, err
	}

	// Step 3: Broadcast the refund to connected clients. Best effort only.
	err = workflow.ExecuteActivity(ctx, "BroadcastRefund", result).Get(ctx, nil)
	if err != nil {
		logger.Warn("refund broadcast failed, refund stands", "error", err)
	}

	logger.Info("Refund completed", "refundID", result.RefundID, "amount", result.Amount)
	return &result, nil
}
