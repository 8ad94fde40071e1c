package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.StockLedger = (*StockLedger)(nil)

// StockLedger ledger autoritativo de stock sobre la tabla stock (usable con pool o tx).
type StockLedger struct {
	q Querier
}

// NewStockLedger construye el adaptador. Pasar pool o tx (Querier).
func NewStockLedger(q Querier) *StockLedger {
	return &StockLedger{q: q}
}

// GetQuantity obtiene el stock actual de un producto en una bodega.
func (l *StockLedger) GetQuantity(ctx context.Context, productID, warehouseID string) (int, bool, error) {
	query := `SELECT quantity FROM stock WHERE product_id = $1 AND warehouse_id = $2`
	var qty int
	err := l.q.QueryRow(ctx, query, productID, warehouseID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get stock: %w", err)
	}
	return qty, true, nil
}

// ConditionalDecrement descuenta amount en un solo UPDATE condicionado a quantity >= amount.
// Si no se actualiza ninguna fila devuelve la cantidad vigente y ok=false.
func (l *StockLedger) ConditionalDecrement(ctx context.Context, productID, warehouseID string, amount int) (int, bool, error) {
	query := `
		UPDATE stock
		SET quantity = quantity - $3, updated_at = now()
		WHERE product_id = $1 AND warehouse_id = $2 AND quantity >= $3
		RETURNING quantity`
	var remaining int
	err := l.q.QueryRow(ctx, query, productID, warehouseID, amount).Scan(&remaining)
	if err == nil {
		return remaining, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("decrement stock: %w", err)
	}
	current, _, err := l.GetQuantity(ctx, productID, warehouseID)
	if err != nil {
		return 0, false, err
	}
	return current, false, nil
}

// Increment suma amount; crea el registro si no existe.
func (l *StockLedger) Increment(ctx context.Context, productID, warehouseID string, amount int) (int, error) {
	query := `
		INSERT INTO stock (product_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = stock.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING quantity`
	var qty int
	if err := l.q.QueryRow(ctx, query, productID, warehouseID, amount).Scan(&qty); err != nil {
		return 0, fmt.Errorf("increment stock: %w", err)
	}
	return qty, nil
}

// SetQuantity inserta o actualiza la cantidad en stock (por producto y bodega).
func (l *StockLedger) SetQuantity(ctx context.Context, productID, warehouseID string, quantity int) error {
	query := `
		INSERT INTO stock (product_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	if _, err := l.q.Exec(ctx, query, productID, warehouseID, quantity); err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// List devuelve todos los registros de stock (seed_stock --list).
func (l *StockLedger) List(ctx context.Context) ([]entity.StockRecord, error) {
	rows, err := l.q.Query(ctx, `SELECT product_id, warehouse_id, quantity, updated_at FROM stock ORDER BY product_id, warehouse_id`)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.StockRecord, error) {
		var s entity.StockRecord
		err := row.Scan(&s.ProductID, &s.WarehouseID, &s.Quantity, &s.UpdatedAt)
		return s, err
	})
}
