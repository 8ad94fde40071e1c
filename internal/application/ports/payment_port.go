package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentRequest datos para abrir un cobro en el proveedor.
type PaymentRequest struct {
	OrderID  string
	UserID   string
	Amount   decimal.Decimal
	Currency string
}

// PaymentInitiation resultado de abrir el cobro: el cliente debe aprobarlo en ApprovalURL.
type PaymentInitiation struct {
	PaymentID       string
	ApprovalURL     string
	ProviderOrderID string
}

// PaymentCapture resultado de capturar un cobro aprobado.
type PaymentCapture struct {
	PaymentID string
}

// PaymentGateway define el puerto de salida hacia el proveedor de pagos (PayPal o fake de desarrollo).
// Las llamadas son externas: el contexto debe llevar timeout.
type PaymentGateway interface {
	Initiate(ctx context.Context, req PaymentRequest) (PaymentInitiation, error)
	// Capture cobra el pago aprobado identificado por paymentRef (id de orden del proveedor).
	Capture(ctx context.Context, paymentRef string) (PaymentCapture, error)
}
