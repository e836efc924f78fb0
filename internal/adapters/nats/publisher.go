package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// Subjects carried by the two streams. Settlement events are durable so the
// settler can replay them; journey events are interest-based.
const (
	SubjectPaymentSettled      = "transit.payments.settled"
	SubjectPaymentRefunded     = "transit.payments.refunded"
	SubjectRefundRequested     = "transit.payments.refund.requested"
	SubjectJourneyCompleted    = "transit.journeys.completed"
	SubjectFareConfigActivated = "transit.fares.config.activated"
	SubjectBroadcast           = "transit.updates.broadcast"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "TRANSIT_PAYMENTS",
			Subjects:  []string{"transit.payments.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "TRANSIT_JOURNEYS",
			Subjects:  []string{"transit.journeys.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "TRANSIT_FARES",
			Subjects:  []string{"transit.fares.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishPaymentSettled(ctx context.Context, payment *domain.Payment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectPaymentSettled, data)
	return err
}

func (p *Publisher) PublishPaymentRefunded(ctx context.Context, payment *domain.Payment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectPaymentRefunded, data)
	return err
}

func (p *Publisher) PublishJourneyCompleted(ctx context.Context, j *domain.Journey) error {
	data, err := json.Marshal(j)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectJourneyCompleted, data)
	return err
}

func (p *Publisher) PublishFareConfigActivated(ctx context.Context, cfg *domain.FareConfiguration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectFareConfigActivated, data)
	return err
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish(SubjectBroadcast, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
