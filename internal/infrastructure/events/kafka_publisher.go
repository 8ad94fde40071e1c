package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/Reservas-api/internal/application/ports"
	"github.com/jhoicas/Reservas-api/pkg/config"
)

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

// messageWriter subconjunto de *kafka.Writer usado por el publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica cada evento en el topic de órdenes con el id de orden como clave,
// de modo que los eventos de una misma orden caen en la misma partición y conservan el orden.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher crea el writer hacia cfg.Brokers.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrderTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  5,
		WriteTimeout: 5 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt ports.OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: payload,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publicar %s: %w", evt.Type, err)
	}
	return nil
}

// Close vacía el buffer del writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
