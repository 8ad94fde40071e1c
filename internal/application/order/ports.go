package order

import (
	"context"

	rsv "github.com/jhoicas/Reservas-api/internal/domain/reservation"
)

// ReservationGateway operaciones del ledger de reservas que usa el saga.
// La implementa *reservation.Gateway.
type ReservationGateway interface {
	Reserve(ctx context.Context, productID, warehouseID, orderID string, quantity int, userID string) (rsv.ReserveResult, error)
	Confirm(ctx context.Context, productID, warehouseID, orderID, userID string) (rsv.ConfirmResult, error)
	Release(ctx context.Context, productID, warehouseID, orderID, userID string) (rsv.ReleaseResult, error)
	Restore(ctx context.Context, productID, warehouseID string, quantity int) (int, error)
}
