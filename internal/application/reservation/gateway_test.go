package reservation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	rsv "github.com/jhoicas/Reservas-api/internal/domain/reservation"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	prodA = "prod-a"
	bodA  = "bod-1"
	user1 = "user-1"
)

// fakeClock reloj manual para controlar el TTL.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyStore envuelve un repositorio en memoria; puede fallar en Save o bloquear Load.
type flakyStore struct {
	*memory.ReservationStateRepo
	failSave atomic.Bool
	gate     chan struct{}
}

func (s *flakyStore) Load(ctx context.Context, key entity.ReservationKey) (*entity.ActorState, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.ReservationStateRepo.Load(ctx, key)
}

func (s *flakyStore) Save(ctx context.Context, key entity.ReservationKey, st *entity.ActorState) error {
	if s.failSave.Load() {
		return errors.New("almacén caído")
	}
	return s.ReservationStateRepo.Save(ctx, key, st)
}

type fixture struct {
	gw     *reservation.Gateway
	ledger *memory.StockLedger
	store  *flakyStore
	clock  *fakeClock
}

func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()
	f := &fixture{
		ledger: memory.NewStockLedger(),
		store:  &flakyStore{ReservationStateRepo: memory.NewReservationStateRepository()},
		clock:  newFakeClock(),
	}
	if stock >= 0 {
		require.NoError(t, f.ledger.SetQuantity(context.Background(), prodA, bodA, stock))
	}
	f.gw = f.newGateway(reservation.Options{})
	return f
}

func (f *fixture) newGateway(opts reservation.Options) *reservation.Gateway {
	opts.Clock = f.clock.Now
	return reservation.NewGateway(f.ledger, f.store, opts, zerolog.Nop())
}

func (f *fixture) ledgerQty(t *testing.T) int {
	t.Helper()
	q, found, err := f.ledger.GetQuantity(context.Background(), prodA, bodA)
	require.NoError(t, err)
	require.True(t, found)
	return q
}

func reserve(t *testing.T, gw *reservation.Gateway, orderID string, qty int) rsv.ReserveResult {
	t.Helper()
	res, err := gw.Reserve(context.Background(), prodA, bodA, orderID, qty, user1)
	require.NoError(t, err)
	return res
}

// ──────────────────────────────────────────────────────────────────────────────
// Reserve / Confirm
// ──────────────────────────────────────────────────────────────────────────────

func TestGateway_ReservaConfirmaYAgota(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	r1 := reserve(t, f.gw, "order-1", 6)
	require.True(t, r1.Success)
	require.NotNil(t, r1.AvailableAfter)
	assert.Equal(t, 4, *r1.AvailableAfter)
	require.NotNil(t, r1.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(reservation.DefaultTTL), *r1.ExpiresAt)

	r2 := reserve(t, f.gw, "order-2", 5)
	assert.False(t, r2.Success)
	assert.Equal(t, rsv.ReasonInsufficientStock, r2.Reason)
	assert.Equal(t, 4, *r2.Available)
	assert.Equal(t, 5, *r2.Requested)

	assert.Equal(t, 10, f.ledgerQty(t), "reservar no debe tocar el ledger")

	c1, err := f.gw.Confirm(ctx, prodA, bodA, "order-1", user1)
	require.NoError(t, err)
	require.True(t, c1.Success)
	assert.Equal(t, 6, *c1.QuantityCommitted)
	assert.Equal(t, 4, *c1.RemainingStock)
	assert.Equal(t, 4, f.ledgerQty(t))

	r3 := reserve(t, f.gw, "order-3", 4)
	require.True(t, r3.Success)
	assert.Equal(t, 0, *r3.AvailableAfter)
}

func TestGateway_ConfirmarVencidaNoTocaLedger(t *testing.T) {
	f := newFixture(t, 10)
	require.True(t, reserve(t, f.gw, "order-1", 6).Success)

	f.clock.Advance(16 * time.Minute)

	c, err := f.gw.Confirm(context.Background(), prodA, bodA, "order-1", user1)
	require.NoError(t, err)
	assert.False(t, c.Success)
	assert.Equal(t, rsv.ReasonReservationExpired, c.Reason)
	assert.True(t, c.Reason.IndicatesExpiry())
	assert.Equal(t, 10, f.ledgerQty(t))

	// Tras el barrido la reserva ya no existe.
	c, err = f.gw.Confirm(context.Background(), prodA, bodA, "order-1", user1)
	require.NoError(t, err)
	assert.Equal(t, rsv.ReasonReservationNotFound, c.Reason)
}

func TestGateway_ReservaIdempotente(t *testing.T) {
	f := newFixture(t, 10)

	r1 := reserve(t, f.gw, "order-1", 3)
	require.True(t, r1.Success)
	f.clock.Advance(time.Minute)
	r2 := reserve(t, f.gw, "order-1", 3)
	require.True(t, r2.Success)

	assert.Equal(t, *r1.ExpiresAt, *r2.ExpiresAt, "no debe renovar el TTL")
	assert.Equal(t, 7, *r2.AvailableAfter, "la misma orden no se cuenta dos veces")

	chk, err := f.gw.Check(context.Background(), prodA, bodA, 7)
	require.NoError(t, err)
	assert.True(t, chk.Available)
	assert.Equal(t, 7, chk.AvailableStock)
}

func TestGateway_TTLRecuperaStock(t *testing.T) {
	f := newFixture(t, 10)

	require.True(t, reserve(t, f.gw, "order-1", 10).Success)
	assert.False(t, reserve(t, f.gw, "order-2", 1).Success)

	f.clock.Advance(reservation.DefaultTTL)

	r := reserve(t, f.gw, "order-2", 1)
	require.True(t, r.Success, "la reserva vencida debe liberar su cantidad")
	assert.Equal(t, 9, *r.AvailableAfter)
}

func TestGateway_ProductoInexistente(t *testing.T) {
	f := newFixture(t, -1)

	r := reserve(t, f.gw, "order-1", 1)
	assert.False(t, r.Success)
	assert.Equal(t, rsv.ReasonProductNotFound, r.Reason)

	chk, err := f.gw.Check(context.Background(), prodA, bodA, 1)
	require.NoError(t, err)
	assert.Equal(t, rsv.CheckResult{}, chk)
}

func TestGateway_CantidadInvalida(t *testing.T) {
	f := newFixture(t, 10)
	for _, q := range []int{0, -3} {
		r := reserve(t, f.gw, fmt.Sprintf("order-%d", q), q)
		assert.False(t, r.Success)
		assert.Equal(t, rsv.ReasonInvalidQuantity, r.Reason)
	}
}

func TestGateway_EntradasInvalidas(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.gw.Reserve(ctx, "", bodA, "order-1", 1, user1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.gw.Reserve(ctx, prodA, bodA, "", 1, user1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.gw.Confirm(ctx, prodA, "", "order-1", user1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.gw.Restore(ctx, prodA, bodA, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGateway_CommitFallidoConservaReserva(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.True(t, reserve(t, f.gw, "order-1", 6).Success)

	// Otro proceso vació el ledger por fuera del actor.
	require.NoError(t, f.ledger.SetQuantity(ctx, prodA, bodA, 2))

	c, err := f.gw.Confirm(ctx, prodA, bodA, "order-1", user1)
	require.NoError(t, err)
	assert.False(t, c.Success)
	assert.Equal(t, rsv.ReasonCommitFailed, c.Reason)
	assert.Equal(t, 2, f.ledgerQty(t))

	require.NoError(t, f.ledger.SetQuantity(ctx, prodA, bodA, 10))
	c, err = f.gw.Confirm(ctx, prodA, bodA, "order-1", user1)
	require.NoError(t, err)
	assert.True(t, c.Success, "la reserva debe seguir disponible para reintento")
	assert.Equal(t, 4, f.ledgerQty(t))
}

// ──────────────────────────────────────────────────────────────────────────────
// Release / Restore / Check
// ──────────────────────────────────────────────────────────────────────────────

func TestGateway_ReleaseIdempotente(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.True(t, reserve(t, f.gw, "order-1", 6).Success)

	for i := 0; i < 2; i++ {
		rel, err := f.gw.Release(ctx, prodA, bodA, "order-1", user1)
		require.NoError(t, err)
		assert.True(t, rel.Success)
	}
	rel, err := f.gw.Release(ctx, prodA, bodA, "desconocida", user1)
	require.NoError(t, err)
	assert.True(t, rel.Success)

	chk, err := f.gw.Check(ctx, prodA, bodA, 10)
	require.NoError(t, err)
	assert.True(t, chk.Available)
	assert.Equal(t, 10, chk.AvailableStock)
	assert.Equal(t, 10, f.ledgerQty(t))
}

func TestGateway_OtroUsuarioNoOperaReservaAjena(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.True(t, reserve(t, f.gw, "order-1", 6).Success)

	_, err := f.gw.Confirm(ctx, prodA, bodA, "order-1", "user-2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.gw.Release(ctx, prodA, bodA, "order-1", "user-2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.gw.Reserve(ctx, prodA, bodA, "order-1", 6, "user-2")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.Equal(t, 10, f.ledgerQty(t))
	chk, err := f.gw.Check(ctx, prodA, bodA, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, chk.AvailableStock, "la reserva del dueño sigue vigente")

	// Sin usuario (llamada interna) la operación procede.
	c, err := f.gw.Confirm(ctx, prodA, bodA, "order-1", "")
	require.NoError(t, err)
	assert.True(t, c.Success)
	assert.Equal(t, 4, f.ledgerQty(t))
}

func TestGateway_RestoreDevuelveStock(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.True(t, reserve(t, f.gw, "order-1", 6).Success)
	c, err := f.gw.Confirm(ctx, prodA, bodA, "order-1", user1)
	require.NoError(t, err)
	require.True(t, c.Success)

	qty, err := f.gw.Restore(ctx, prodA, bodA, 6)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)
	assert.Equal(t, 10, f.ledgerQty(t))

	chk, err := f.gw.Check(ctx, prodA, bodA, 10)
	require.NoError(t, err)
	assert.True(t, chk.Available, "la caché debe reflejar la restitución")
}

func TestGateway_CheckNoBajaDeCero(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.True(t, reserve(t, f.gw, "order-1", 8).Success)

	require.NoError(t, f.ledger.SetQuantity(ctx, prodA, bodA, 5))
	f.clock.Advance(reservation.DefaultSyncInterval)

	chk, err := f.gw.Check(ctx, prodA, bodA, 1)
	require.NoError(t, err)
	assert.False(t, chk.Available)
	assert.Equal(t, 0, chk.AvailableStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Persistencia y carga
// ──────────────────────────────────────────────────────────────────────────────

func TestGateway_EstadoSobreviveReinicio(t *testing.T) {
	f := newFixture(t, 10)
	require.True(t, reserve(t, f.gw, "order-1", 7).Success)

	// Nuevo gateway sobre el mismo almacén (reinicio del proceso).
	gw2 := f.newGateway(reservation.Options{})
	r := reserve(t, gw2, "order-2", 4)
	assert.False(t, r.Success)
	assert.Equal(t, 3, *r.Available)
}

func TestGateway_BarreraDeCarga(t *testing.T) {
	f := newFixture(t, 10)
	require.True(t, reserve(t, f.gw, "order-1", 8).Success)

	f.store.gate = make(chan struct{})
	gw2 := f.newGateway(reservation.Options{})

	done := make(chan rsv.ReserveResult, 1)
	go func() {
		res, err := gw2.Reserve(context.Background(), prodA, bodA, "order-2", 5, user1)
		if err == nil {
			done <- res
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("la operación no debe ejecutarse antes de cargar el estado")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.store.gate)
	select {
	case res, ok := <-done:
		require.True(t, ok, "Reserve no debe fallar")
		assert.False(t, res.Success)
		assert.Equal(t, rsv.ReasonInsufficientStock, res.Reason)
		assert.Equal(t, 2, *res.Available)
	case <-time.After(2 * time.Second):
		t.Fatal("la operación debe continuar al liberar la barrera")
	}
}

func TestGateway_FalloDePersistenciaNoAplicaReserva(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.True(t, reserve(t, f.gw, "order-0", 1).Success)

	f.store.failSave.Store(true)
	_, err := f.gw.Reserve(ctx, prodA, bodA, "order-1", 5, user1)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	f.store.failSave.Store(false)
	chk, err := f.gw.Check(ctx, prodA, bodA, 9)
	require.NoError(t, err)
	assert.True(t, chk.Available)
	assert.Equal(t, 9, chk.AvailableStock, "la reserva fallida no debe retener stock")
}

// ──────────────────────────────────────────────────────────────────────────────
// Janitor
// ──────────────────────────────────────────────────────────────────────────────

func TestGateway_SweepPersisteBarrido(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.True(t, reserve(t, f.gw, "order-1", 3).Success)
	require.True(t, reserve(t, f.gw, "order-2", 2).Success)

	assert.Equal(t, 0, f.gw.Sweep(ctx))
	f.clock.Advance(16 * time.Minute)
	assert.Equal(t, 2, f.gw.Sweep(ctx))

	st, err := f.store.Load(ctx, entity.ReservationKey{ProductID: prodA, WarehouseID: bodA})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Empty(t, st.Reservations)
}

func TestGateway_DescargaActoresInactivos(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	gw := f.newGateway(reservation.Options{IdleEvict: time.Minute})

	require.True(t, reserve(t, gw, "order-1", 3).Success)
	f.clock.Advance(2 * time.Minute)
	gw.Sweep(ctx)
	assert.Equal(t, 1, gw.ActorCount(), "un actor con reservas vigentes no se descarga")

	_, err := gw.Release(ctx, prodA, bodA, "order-1", user1)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)
	gw.Sweep(ctx)
	assert.Equal(t, 0, gw.ActorCount())

	r := reserve(t, gw, "order-2", 10)
	assert.True(t, r.Success, "un actor nuevo debe cargarse bajo demanda")
}

func TestGateway_StartYClose(t *testing.T) {
	f := newFixture(t, 10)
	gw := f.newGateway(reservation.Options{CleanupInterval: 10 * time.Millisecond})
	require.True(t, reserve(t, gw, "order-1", 3).Success)
	f.clock.Advance(16 * time.Minute)

	gw.Start(context.Background())
	require.Eventually(t, func() bool {
		st, err := f.store.Load(context.Background(), entity.ReservationKey{ProductID: prodA, WarehouseID: bodA})
		return err == nil && st != nil && len(st.Reservations) == 0
	}, 2*time.Second, 10*time.Millisecond)

	gw.Close()
	gw.Close()
	gw.Wait()
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestGateway_ReservasConcurrentesNoSobrevenden(t *testing.T) {
	const stock, clients = 50, 120
	f := newFixture(t, stock)
	ctx := context.Background()

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.gw.Reserve(ctx, prodA, bodA, fmt.Sprintf("order-%d", i), 1, user1)
			if err == nil && res.Success {
				ok.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(stock), ok.Load())

	var confirmed atomic.Int32
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := f.gw.Confirm(ctx, prodA, bodA, fmt.Sprintf("order-%d", i), user1)
			if err == nil && c.Success {
				confirmed.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(stock), confirmed.Load())
	assert.Equal(t, 0, f.ledgerQty(t))
}

func TestGateway_ClavesIndependientes(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	require.NoError(t, f.ledger.SetQuantity(ctx, prodA, "bod-2", 1))

	require.True(t, reserve(t, f.gw, "order-1", 5).Success)
	res, err := f.gw.Reserve(ctx, prodA, "bod-2", "order-1", 1, user1)
	require.NoError(t, err)
	assert.True(t, res.Success, "la misma orden puede reservar en otra bodega")
	assert.Equal(t, 2, f.gw.ActorCount())
}
