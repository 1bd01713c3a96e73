package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published by the checkout pipeline.
const (
	SubjectOrderCreated   = "orders.created"
	SubjectOrderCancelled = "orders.cancelled"
)

// OrderEvent is the payload of every order subject.
type OrderEvent struct {
	OrderID      string    `json:"orderId"`
	StoreID      string    `json:"storeId"`
	UserID       string    `json:"userId"`
	Total        string    `json:"total"`
	ItemCount    int       `json:"itemCount"`
	DiscountCode string    `json:"discountCode,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher emits events after the state they describe has committed.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
}

// NATSPublisher publishes JSON-encoded events on a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher creates a Publisher over conn.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Publish encodes event and sends it on subject. Core NATS publishing is
// fire-and-forget; ctx is only checked before sending.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// Connect dials NATS with reconnect settings suited to a long-lived server.
// Connection state changes are logged to logger.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return conn, nil
}
