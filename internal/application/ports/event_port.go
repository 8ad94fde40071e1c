package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de evento del ciclo de vida de la orden.
const (
	EventOrderCreated          = "order.created"
	EventOrderPaymentInitiated = "order.payment_initiated"
	EventOrderConfirmed        = "order.confirmed"
	EventOrderExpired          = "order.expired"
	EventOrderFailed           = "order.failed"
	EventOrderCancelled        = "order.cancelled"
)

// OrderEvent cambio de estado publicado para consumidores externos (reembolsos, fulfilment).
type OrderEvent struct {
	Type        string          `json:"type"`
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	Status      string          `json:"status"`
	PaymentID   string          `json:"payment_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Reason      string          `json:"reason,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// EventPublisher puerto de salida para eventos de orden (Kafka o log).
type EventPublisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
}
