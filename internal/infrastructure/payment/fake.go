package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/Reservas-api/internal/application/ports"
	"github.com/jhoicas/Reservas-api/internal/domain"
)

var _ ports.PaymentGateway = (*DevGateway)(nil)

// DevGateway proveedor simulado para PAYMENT_MODE=dev: aprueba todo y captura cada pago una sola vez.
type DevGateway struct {
	baseURL string

	mu       sync.Mutex
	pending  map[string]string // paymentID -> orderID
	captures map[string]string // paymentID -> captureID
}

func NewDevGateway(approvalBaseURL string) *DevGateway {
	return &DevGateway{
		baseURL:  approvalBaseURL,
		pending:  make(map[string]string),
		captures: make(map[string]string),
	}
}

func (g *DevGateway) Initiate(_ context.Context, req ports.PaymentRequest) (ports.PaymentInitiation, error) {
	if req.Amount.IsNegative() {
		return ports.PaymentInitiation{}, fmt.Errorf("pago dev: monto negativo: %w", domain.ErrInvalidInput)
	}
	id := "DEV-" + uuid.NewString()
	g.mu.Lock()
	g.pending[id] = req.OrderID
	g.mu.Unlock()
	return ports.PaymentInitiation{
		PaymentID:       id,
		ApprovalURL:     g.baseURL + "?token=" + id,
		ProviderOrderID: id,
	}, nil
}

// Capture es idempotente: recapturar devuelve la misma captura.
func (g *DevGateway) Capture(_ context.Context, paymentRef string) (ports.PaymentCapture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if capID, ok := g.captures[paymentRef]; ok {
		return ports.PaymentCapture{PaymentID: capID}, nil
	}
	if _, ok := g.pending[paymentRef]; !ok {
		return ports.PaymentCapture{}, fmt.Errorf("pago dev %s desconocido: %w", paymentRef, domain.ErrUpstream)
	}
	capID := "CAP-" + uuid.NewString()
	delete(g.pending, paymentRef)
	g.captures[paymentRef] = capID
	return ports.PaymentCapture{PaymentID: capID}, nil
}
