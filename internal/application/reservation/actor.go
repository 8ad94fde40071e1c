package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
	rsv "github.com/jhoicas/Reservas-api/internal/domain/reservation"
)

// errRetired lo devuelve un actor ya descargado por el gateway; el gateway reintenta con uno nuevo.
var errRetired = errors.New("actor de reservas retirado")

// Actor dueño exclusivo del estado de una clave (producto, bodega).
// Todas sus operaciones se serializan con mu y esperan la barrera de carga (ready).
type Actor struct {
	key    entity.ReservationKey
	ledger repository.StockLedger
	store  repository.ReservationStateRepository
	opts   Options
	log    zerolog.Logger

	ready   chan struct{} // se cierra cuando termina la carga del estado persistido
	loadErr error

	mu       sync.Mutex
	state    *entity.ActorState
	lastUsed time.Time
	retired  bool
}

func newActor(key entity.ReservationKey, ledger repository.StockLedger, store repository.ReservationStateRepository, opts Options, log zerolog.Logger) *Actor {
	return &Actor{
		key:    key,
		ledger: ledger,
		store:  store,
		opts:   opts,
		log: log.With().
			Str("product_id", key.ProductID).
			Str("warehouse_id", key.WarehouseID).
			Logger(),
		ready:    make(chan struct{}),
		lastUsed: opts.Clock(),
	}
}

// load lee el estado persistido y libera la barrera. Se llama una sola vez.
func (a *Actor) load(ctx context.Context) {
	defer close(a.ready)
	st, err := a.store.Load(ctx, a.key)
	if err != nil {
		a.loadErr = fmt.Errorf("cargar estado %s: %v: %w", a.key, err, domain.ErrUpstream)
		a.log.Error().Err(err).Msg("no se pudo cargar el estado del actor")
		return
	}
	if st == nil {
		st = entity.NewActorState()
	}
	if st.Reservations == nil {
		st.Reservations = make(map[string]entity.Reservation)
	}
	a.state = st
}

// await bloquea hasta que el estado esté cargado o el contexto termine.
func (a *Actor) await(ctx context.Context) error {
	select {
	case <-a.ready:
		return a.loadErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// broken indica si la carga terminó con error (no bloquea).
func (a *Actor) broken() bool {
	select {
	case <-a.ready:
		return a.loadErr != nil
	default:
		return false
	}
}

// lock espera la barrera y toma el lock. Si devuelve nil el caller debe liberar mu.
func (a *Actor) lock(ctx context.Context) error {
	if err := a.await(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	if a.retired {
		a.mu.Unlock()
		return errRetired
	}
	return nil
}

// enter es lock más la marca de uso (las pasadas del janitor no cuentan como uso).
func (a *Actor) enter(ctx context.Context) error {
	if err := a.lock(ctx); err != nil {
		return err
	}
	a.lastUsed = a.opts.Clock()
	return nil
}

// persist guarda el estado; si falla restaura before.
func (a *Actor) persist(ctx context.Context, before *entity.ActorState) error {
	if err := a.store.Save(ctx, a.key, a.state); err != nil {
		a.state = before
		return fmt.Errorf("guardar estado %s: %v: %w", a.key, err, domain.ErrUpstream)
	}
	return nil
}

// persistBestEffort guarda cambios que no alteran el resultado (purga, caché). Un fallo solo se registra.
func (a *Actor) persistBestEffort(ctx context.Context) {
	if err := a.store.Save(ctx, a.key, a.state); err != nil {
		a.log.Warn().Err(err).Msg("no se pudo persistir el estado del actor")
	}
}

func (a *Actor) purge(now time.Time) int {
	purged := a.state.PurgeExpired(now)
	if len(purged) > 0 {
		expiredTotal.Add(float64(len(purged)))
		for _, r := range purged {
			a.log.Debug().Str("order_id", r.OrderID).Int("quantity", r.Quantity).Msg("reserva vencida liberada")
		}
	}
	return len(purged)
}

// syncStock refresca la caché desde el ledger si no existe o es más vieja que SyncInterval.
// Si el ledger no tiene registro la caché queda en nil.
func (a *Actor) syncStock(ctx context.Context, now time.Time) (changed bool, err error) {
	c := a.state.StockCache
	if c != nil && now.Sub(c.LastSyncTime) < a.opts.SyncInterval {
		return false, nil
	}
	qty, found, err := a.ledger.GetQuantity(ctx, a.key.ProductID, a.key.WarehouseID)
	if err != nil {
		return false, fmt.Errorf("leer ledger %s: %v: %w", a.key, err, domain.ErrUpstream)
	}
	if !found {
		a.state.StockCache = nil
		return c != nil, nil
	}
	a.state.StockCache = &entity.StockCache{Quantity: qty, LastSyncTime: now}
	return true, nil
}

// Reserve retiene quantity para orderID durante el TTL.
func (a *Actor) Reserve(ctx context.Context, orderID string, quantity int, userID string) (rsv.ReserveResult, error) {
	if err := a.enter(ctx); err != nil {
		return rsv.ReserveResult{}, err
	}
	defer a.mu.Unlock()

	if quantity <= 0 {
		observe("reserve", string(rsv.ReasonInvalidQuantity))
		return rsv.Fail(rsv.ReasonInvalidQuantity), nil
	}

	now := a.opts.Clock()
	before := a.state.Clone()
	dirty := a.purge(now) > 0

	// Idempotencia: misma orden, mismos términos.
	if r, ok := a.state.Reservations[orderID]; ok {
		if dirty {
			a.persistBestEffort(ctx)
		}
		if r.UserID != userID {
			observe("reserve", "forbidden")
			return rsv.ReserveResult{}, domain.ErrForbidden
		}
		observe("reserve", "idempotent")
		return rsv.Reserved(r.ExpiresAt, a.state.Available(now)), nil
	}

	refreshed, err := a.syncStock(ctx, now)
	if err != nil {
		a.state = before
		observe("reserve", "error")
		return rsv.ReserveResult{}, err
	}
	dirty = dirty || refreshed

	if a.state.StockCache == nil {
		if dirty {
			a.persistBestEffort(ctx)
		}
		observe("reserve", string(rsv.ReasonProductNotFound))
		return rsv.Fail(rsv.ReasonProductNotFound), nil
	}

	available := a.state.Available(now)
	if available < quantity {
		if dirty {
			a.persistBestEffort(ctx)
		}
		observe("reserve", string(rsv.ReasonInsufficientStock))
		return rsv.Insufficient(available, quantity), nil
	}

	res := entity.Reservation{
		OrderID:   orderID,
		Quantity:  quantity,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(a.opts.TTL),
	}
	a.state.Reservations[orderID] = res
	if err := a.persist(ctx, before); err != nil {
		observe("reserve", "error")
		return rsv.ReserveResult{}, err
	}

	observe("reserve", "ok")
	a.log.Debug().Str("order_id", orderID).Int("quantity", quantity).Time("expires_at", res.ExpiresAt).Msg("reserva creada")
	return rsv.Reserved(res.ExpiresAt, available-quantity), nil
}

// Confirm descuenta del ledger la cantidad reservada por orderID y elimina la reserva.
// userID vacío indica un llamador interno de confianza; si no, debe ser el dueño de la reserva.
func (a *Actor) Confirm(ctx context.Context, orderID, userID string) (rsv.ConfirmResult, error) {
	if err := a.enter(ctx); err != nil {
		return rsv.ConfirmResult{}, err
	}
	defer a.mu.Unlock()

	now := a.opts.Clock()
	before := a.state.Clone()

	// La reserva objetivo se inspecciona antes del barrido para distinguir vencida de inexistente.
	r, ok := a.state.Reservations[orderID]
	if ok && !ownedBy(r, userID) {
		observe("confirm", "forbidden")
		return rsv.ConfirmResult{}, domain.ErrForbidden
	}
	if ok && r.Expired(now) {
		a.purge(now)
		a.persistBestEffort(ctx)
		observe("confirm", string(rsv.ReasonReservationExpired))
		return rsv.ConfirmFail(rsv.ReasonReservationExpired), nil
	}

	dirty := a.purge(now) > 0
	if !ok {
		if dirty {
			a.persistBestEffort(ctx)
		}
		observe("confirm", string(rsv.ReasonReservationNotFound))
		return rsv.ConfirmFail(rsv.ReasonReservationNotFound), nil
	}

	remaining, committed, err := a.ledger.ConditionalDecrement(ctx, a.key.ProductID, a.key.WarehouseID, r.Quantity)
	if err != nil {
		a.state = before
		observe("confirm", "error")
		return rsv.ConfirmResult{}, fmt.Errorf("decremento en ledger %s: %v: %w", a.key, err, domain.ErrUpstream)
	}
	if !committed {
		// Anomalía de consistencia: la reserva queda intacta para reintento o compensación.
		if dirty {
			a.persistBestEffort(ctx)
		}
		a.log.Warn().Str("order_id", orderID).Int("quantity", r.Quantity).Msg("el ledger rechazó el decremento")
		observe("confirm", string(rsv.ReasonCommitFailed))
		return rsv.ConfirmFail(rsv.ReasonCommitFailed), nil
	}

	delete(a.state.Reservations, orderID)
	a.state.StockCache = &entity.StockCache{Quantity: remaining, LastSyncTime: now}
	// El ledger ya se modificó: un fallo al guardar no revierte la confirmación.
	if err := a.store.Save(ctx, a.key, a.state); err != nil {
		a.log.Error().Err(err).Str("order_id", orderID).Msg("confirmación aplicada pero el estado no se persistió")
	}

	observe("confirm", "ok")
	return rsv.Confirmed(r.Quantity, remaining), nil
}

// Release elimina la reserva de orderID. Idempotente. userID igual que en Confirm.
func (a *Actor) Release(ctx context.Context, orderID, userID string) (rsv.ReleaseResult, error) {
	if err := a.enter(ctx); err != nil {
		return rsv.ReleaseResult{}, err
	}
	defer a.mu.Unlock()

	if r, ok := a.state.Reservations[orderID]; ok && !ownedBy(r, userID) {
		observe("release", "forbidden")
		return rsv.ReleaseResult{}, domain.ErrForbidden
	}

	now := a.opts.Clock()
	before := a.state.Clone()
	dirty := a.purge(now) > 0
	if _, ok := a.state.Reservations[orderID]; ok {
		delete(a.state.Reservations, orderID)
		dirty = true
	}
	if dirty {
		if err := a.persist(ctx, before); err != nil {
			observe("release", "error")
			return rsv.ReleaseResult{}, err
		}
	}
	observe("release", "ok")
	return rsv.ReleaseResult{Success: true}, nil
}

func ownedBy(r entity.Reservation, userID string) bool {
	return userID == "" || r.UserID == userID
}

// Check consulta no autoritativa: una Reserve posterior puede fallar igualmente.
func (a *Actor) Check(ctx context.Context, quantity int) (rsv.CheckResult, error) {
	if err := a.enter(ctx); err != nil {
		return rsv.CheckResult{}, err
	}
	defer a.mu.Unlock()

	now := a.opts.Clock()
	if _, err := a.syncStock(ctx, now); err != nil {
		return rsv.CheckResult{}, err
	}
	if a.state.StockCache == nil {
		return rsv.CheckResult{}, nil
	}
	available := a.state.Available(now)
	if available < 0 {
		available = 0
	}
	return rsv.CheckResult{Available: available >= quantity, AvailableStock: available}, nil
}

// Restore devuelve quantity al ledger (compensación de una confirmación) y actualiza la caché.
func (a *Actor) Restore(ctx context.Context, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, domain.ErrInvalidInput
	}
	if err := a.enter(ctx); err != nil {
		return 0, err
	}
	defer a.mu.Unlock()

	qty, err := a.ledger.Increment(ctx, a.key.ProductID, a.key.WarehouseID, quantity)
	if err != nil {
		observe("restore", "error")
		return 0, fmt.Errorf("incremento en ledger %s: %v: %w", a.key, err, domain.ErrUpstream)
	}
	a.state.StockCache = &entity.StockCache{Quantity: qty, LastSyncTime: a.opts.Clock()}
	a.persistBestEffort(ctx)
	observe("restore", "ok")
	return qty, nil
}

// Cleanup barrido periódico de reservas vencidas. Espera la barrera de carga.
func (a *Actor) Cleanup(ctx context.Context) (int, error) {
	if err := a.lock(ctx); err != nil {
		return 0, err
	}
	defer a.mu.Unlock()

	before := a.state.Clone()
	n := a.purge(a.opts.Clock())
	if n == 0 {
		return 0, nil
	}
	if err := a.persist(ctx, before); err != nil {
		return 0, err
	}
	return n, nil
}

// retireIfIdle marca el actor como retirado si no tiene reservas y no se usa desde hace idleAfter.
func (a *Actor) retireIfIdle(now time.Time, idleAfter time.Duration) bool {
	select {
	case <-a.ready:
	default:
		return false
	}
	if !a.mu.TryLock() {
		return false // ocupado: no está inactivo
	}
	defer a.mu.Unlock()
	if a.retired {
		return true
	}
	if a.loadErr == nil && (len(a.state.Reservations) > 0 || now.Sub(a.lastUsed) < idleAfter) {
		return false
	}
	a.retired = true
	return true
}
