package badger_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	storebadger "github.com/jhoicas/Reservas-api/internal/infrastructure/badger"
)

func TestStateStore_GuardaYCarga(t *testing.T) {
	db, err := storebadger.Open("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := storebadger.NewStateStore(db)
	ctx := context.Background()
	key := entity.ReservationKey{ProductID: "p1", WarehouseID: "w1"}

	st, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, st, "una clave nueva no tiene estado")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := entity.NewActorState()
	want.StockCache = &entity.StockCache{Quantity: 10, LastSyncTime: now}
	want.Reservations["o1"] = entity.Reservation{OrderID: "o1", Quantity: 6, UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(15 * time.Minute)}
	require.NoError(t, store.Save(ctx, key, want))

	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.StockCache.Quantity)
	assert.True(t, now.Equal(got.StockCache.LastSyncTime))
	require.Contains(t, got.Reservations, "o1")
	assert.Equal(t, 6, got.Reservations["o1"].Quantity)
	assert.Equal(t, 4, got.Available(now))

	delete(want.Reservations, "o1")
	require.NoError(t, store.Save(ctx, key, want))
	got, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got.Reservations)

	other, err := store.Load(ctx, entity.ReservationKey{ProductID: "p1", WarehouseID: "w2"})
	require.NoError(t, err)
	assert.Nil(t, other, "las claves no se mezclan")
}

func TestStateStore_ContextoCancelado(t *testing.T) {
	db, err := storebadger.Open("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = storebadger.NewStateStore(db).Load(ctx, entity.ReservationKey{ProductID: "p", WarehouseID: "w"})
	assert.ErrorIs(t, err, context.Canceled)
}
