// Package memory implementa los puertos de persistencia en memoria (APP_ENV development y tests).
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.StockLedger = (*StockLedger)(nil)

// StockLedger ledger de stock en memoria, seguro para uso concurrente.
type StockLedger struct {
	mu    sync.Mutex
	stock map[entity.ReservationKey]int
}

// NewStockLedger construye un ledger vacío.
func NewStockLedger() *StockLedger {
	return &StockLedger{stock: make(map[entity.ReservationKey]int)}
}

func keyOf(productID, warehouseID string) entity.ReservationKey {
	return entity.ReservationKey{ProductID: productID, WarehouseID: warehouseID}
}

// GetQuantity devuelve la cantidad y si el registro existe.
func (l *StockLedger) GetQuantity(_ context.Context, productID, warehouseID string) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.stock[keyOf(productID, warehouseID)]
	return q, ok, nil
}

// ConditionalDecrement resta amount solo si hay cantidad suficiente.
func (l *StockLedger) ConditionalDecrement(_ context.Context, productID, warehouseID string, amount int) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := keyOf(productID, warehouseID)
	q, ok := l.stock[k]
	if !ok || q < amount {
		return q, false, nil
	}
	l.stock[k] = q - amount
	return q - amount, true, nil
}

// Increment suma amount (crea el registro si no existe).
func (l *StockLedger) Increment(_ context.Context, productID, warehouseID string, amount int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := keyOf(productID, warehouseID)
	l.stock[k] += amount
	return l.stock[k], nil
}

// SetQuantity fija la cantidad.
func (l *StockLedger) SetQuantity(_ context.Context, productID, warehouseID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[keyOf(productID, warehouseID)] = quantity
	return nil
}
