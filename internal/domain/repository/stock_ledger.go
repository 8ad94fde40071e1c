package repository

import "context"

// StockLedger define el puerto del ledger autoritativo de stock por (producto, bodega).
// Las reservas nunca lo tocan; solo Confirm (decremento condicional) y Restore (incremento).
type StockLedger interface {
	// GetQuantity devuelve la cantidad actual. found=false si no existe el registro.
	GetQuantity(ctx context.Context, productID, warehouseID string) (quantity int, found bool, err error)

	// ConditionalDecrement resta amount solo si la cantidad actual es >= amount (atómico).
	// ok=false cuando el ledger rechaza la operación; remaining es la cantidad resultante.
	ConditionalDecrement(ctx context.Context, productID, warehouseID string, amount int) (remaining int, ok bool, err error)

	// Increment suma amount (crea el registro si no existe) y devuelve la nueva cantidad.
	Increment(ctx context.Context, productID, warehouseID string, amount int) (quantity int, err error)

	// SetQuantity fija la cantidad (carga inicial / administración).
	SetQuantity(ctx context.Context, productID, warehouseID string, quantity int) error
}
