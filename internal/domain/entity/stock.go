package entity

import "time"

// StockRecord cantidad autoritativa de un producto en una bodega (ledger).
// Solo se modifica con decremento condicional (Confirm) o incremento (Restore).
type StockRecord struct {
	ProductID   string
	WarehouseID string
	Quantity    int
	UpdatedAt   time.Time
}
