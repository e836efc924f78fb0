package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/mytransittn/transitfare/internal/adapters/nats"
	"github.com/mytransittn/transitfare/internal/adapters/postgres"
	"github.com/mytransittn/transitfare/internal/core/ports"
	"github.com/mytransittn/transitfare/internal/core/usecases"
	"github.com/mytransittn/transitfare/internal/pkg/config"
	"github.com/mytransittn/transitfare/internal/pkg/logging"
	"github.com/mytransittn/transitfare/internal/workflows"
)

// The settler consumes refund requests from NATS and drives each one through
// a Temporal workflow, so a crashed refund resumes instead of vanishing.
func main() {
	cfg, err := config.Load("transitfare-settler")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats publisher unavailable, refund events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	journeyRepo := postgres.NewJourneyRepo(db)
	riderRepo := postgres.NewRiderRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)
	paymentSvc := usecases.NewPaymentService(ledgerRepo, journeyRepo, riderRepo, events)

	// Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RefundWorkflow)
	w.RegisterActivity(&workflows.RefundActivities{
		Payments: paymentSvc,
		Ledger:   ledgerRepo,
		Events:   events,
	})

	// Refund requests arrive over NATS; each one starts a workflow. The
	// workflow ID is derived from the payment so redelivered requests dedupe
	// against the running (or completed) execution.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeRefundRequests(ctx, func(ctx context.Context, req *natsadapter.RefundRequest) error {
		_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "refund-" + req.PaymentID,
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.RefundWorkflow, workflows.RefundInput{
			PaymentID: req.PaymentID,
			Reason:    req.Reason,
		})
		if err != nil {
			slog.Error("start refund workflow", "paymentID", req.PaymentID, "error", err)
			return err
		}
		slog.Info("refund workflow started", "paymentID", req.PaymentID)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe refund requests: %v", err)
	}

	slog.Info("settler worker started", "taskQueue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
