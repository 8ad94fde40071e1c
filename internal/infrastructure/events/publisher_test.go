package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/application/ports"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func sampleEvent() ports.OrderEvent {
	return ports.OrderEvent{
		Type:        ports.EventOrderConfirmed,
		OrderID:     "ord-1",
		UserID:      "user-1",
		Status:      "confirmed",
		PaymentID:   "cap-1",
		TotalAmount: decimal.RequireFromString("59.90"),
		Currency:    "USD",
		OccurredAt:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_ClaveYPayload(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{w: w}

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ord-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, ports.EventOrderConfirmed, string(msg.Headers[0].Value))

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "order.confirmed", got["type"])
	assert.Equal(t, "59.9", got["total_amount"])
	assert.Equal(t, "cap-1", got["payment_id"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_PropagaError(t *testing.T) {
	p := &KafkaPublisher{w: &captureWriter{err: errors.New("broker caído")}}
	err := p.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker caído")
}

func TestLogPublisher_EscribeCampos(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "order.confirmed", line["event"])
	assert.Equal(t, "ord-1", line["order_id"])
	assert.Equal(t, "order_events", line["component"])
}
