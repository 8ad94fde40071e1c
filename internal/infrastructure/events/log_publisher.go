// Package events publica los eventos del ciclo de vida de la orden.
package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Reservas-api/internal/application/ports"
)

var _ ports.EventPublisher = (*LogPublisher)(nil)

// LogPublisher registra los eventos en el log estructurado. Se usa cuando no hay brokers Kafka.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "order_events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, evt ports.OrderEvent) error {
	p.log.Info().
		Str("event", evt.Type).
		Str("order_id", evt.OrderID).
		Str("user_id", evt.UserID).
		Str("status", evt.Status).
		Str("payment_id", evt.PaymentID).
		Str("total", evt.TotalAmount.String()).
		Str("currency", evt.Currency).
		Str("reason", evt.Reason).
		Time("occurred_at", evt.OccurredAt).
		Msg("evento de orden")
	return nil
}
