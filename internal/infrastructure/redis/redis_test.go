package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/pkg/config"
)

func TestKeys_ComparteSlotPorClave(t *testing.T) {
	assert.Equal(t, "reservas:stock:{p1:w1}", stockKey("p1", "w1"))
	assert.Equal(t, "reservas:actor:{p1:w1}", stateKey("p1", "w1"))
}

// Requiere un Redis real: REDIS_TEST_ADDR=localhost:6379 go test ./...
func TestStockLedger_Integracion(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR no definido")
	}
	ctx := context.Background()
	rdb, err := NewClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	product := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { rdb.Del(ctx, stockKey(product, "w1"), stateKey(product, "w1")) })

	ledger := NewStockLedger(rdb)
	_, found, err := ledger.GetQuantity(ctx, product, "w1")
	require.NoError(t, err)
	assert.False(t, found)

	_, ok, err := ledger.ConditionalDecrement(ctx, product, "w1", 1)
	require.NoError(t, err)
	assert.False(t, ok, "sin registro no hay descuento")

	require.NoError(t, ledger.SetQuantity(ctx, product, "w1", 5))
	remaining, ok, err := ledger.ConditionalDecrement(ctx, product, "w1", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, remaining)

	remaining, ok, err = ledger.ConditionalDecrement(ctx, product, "w1", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, remaining)

	n, err := ledger.Increment(ctx, product, "w1", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	store := NewStateStore(rdb)
	key := entity.ReservationKey{ProductID: product, WarehouseID: "w1"}
	st, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, st)

	want := entity.NewActorState()
	want.StockCache = &entity.StockCache{Quantity: 6, LastSyncTime: time.Now().UTC()}
	require.NoError(t, store.Save(ctx, key, want))
	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 6, got.StockCache.Quantity)
}
