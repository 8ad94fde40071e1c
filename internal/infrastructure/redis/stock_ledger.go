package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.StockLedger = (*StockLedger)(nil)

// decrStock lee, compara y descuenta en un solo paso dentro de Redis.
// KEYS[1]=clave de stock, ARGV[1]=cantidad. Devuelve {1, restante} o {0, actual};
// actual=-1 si la clave no existe.
var decrStock = goredis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return {0, -1}
end
local current = tonumber(raw)
local decr = tonumber(ARGV[1])
if current >= decr then
  return {1, redis.call('DECRBY', KEYS[1], decr)}
end
return {0, current}
`)

// StockLedger ledger autoritativo en Redis: un entero por (producto, bodega).
type StockLedger struct {
	rdb goredis.UniversalClient
}

// NewStockLedger construye el ledger sobre un cliente existente.
func NewStockLedger(rdb goredis.UniversalClient) *StockLedger {
	return &StockLedger{rdb: rdb}
}

func (l *StockLedger) GetQuantity(ctx context.Context, productID, warehouseID string) (int, bool, error) {
	n, err := l.rdb.Get(ctx, stockKey(productID, warehouseID)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get stock: %w", err)
	}
	return n, true, nil
}

func (l *StockLedger) ConditionalDecrement(ctx context.Context, productID, warehouseID string, amount int) (int, bool, error) {
	res, err := decrStock.Run(ctx, l.rdb, []string{stockKey(productID, warehouseID)}, amount).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis decremento condicional: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("redis decremento condicional: respuesta inesperada %v", res)
	}
	remaining := int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return remaining, res[0] == 1, nil
}

func (l *StockLedger) Increment(ctx context.Context, productID, warehouseID string, amount int) (int, error) {
	n, err := l.rdb.IncrBy(ctx, stockKey(productID, warehouseID), int64(amount)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incrby stock: %w", err)
	}
	return int(n), nil
}

func (l *StockLedger) SetQuantity(ctx context.Context, productID, warehouseID string, quantity int) error {
	if err := l.rdb.Set(ctx, stockKey(productID, warehouseID), quantity, 0).Err(); err != nil {
		return fmt.Errorf("redis set stock: %w", err)
	}
	return nil
}
