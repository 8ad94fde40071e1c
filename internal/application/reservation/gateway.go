package reservation

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
	rsv "github.com/jhoicas/Reservas-api/internal/domain/reservation"
)

const (
	shardCount = 16
	// retiredRetries intentos cuando el actor fue retirado entre la búsqueda y la operación.
	retiredRetries = 3
)

type shard struct {
	mu     sync.Mutex
	actors map[entity.ReservationKey]*Actor
}

// Gateway enruta cada clave (producto, bodega) a su actor. Los actores se crean bajo demanda,
// cargan su estado en segundo plano y un janitor ejecuta el barrido periódico de vencidas.
type Gateway struct {
	ledger repository.StockLedger
	store  repository.ReservationStateRepository
	opts   Options
	log    zerolog.Logger

	shards [shardCount]*shard

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewGateway construye el gateway. Llamar Start para activar el barrido periódico.
func NewGateway(
	ledger repository.StockLedger,
	store repository.ReservationStateRepository,
	opts Options,
	log zerolog.Logger,
) *Gateway {
	g := &Gateway{
		ledger: ledger,
		store:  store,
		opts:   opts.withDefaults(),
		log:    log.With().Str("component", "reservation_gateway").Logger(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i := range g.shards {
		g.shards[i] = &shard{actors: make(map[entity.ReservationKey]*Actor)}
	}
	return g
}

func (g *Gateway) shardFor(key entity.ReservationKey) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.ProductID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.WarehouseID))
	return g.shards[h.Sum32()%shardCount]
}

// actorFor devuelve el actor vivo de la clave, creándolo si no existe o si su carga falló.
func (g *Gateway) actorFor(key entity.ReservationKey) *Actor {
	s := g.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.actors[key]; ok && !a.broken() {
		return a
	} else if ok {
		delete(s.actors, key)
		activeActors.Dec()
	}
	a := newActor(key, g.ledger, g.store, g.opts, g.log)
	s.actors[key] = a
	activeActors.Inc()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.opts.LoadTimeout)
		defer cancel()
		a.load(ctx)
	}()
	return a
}

func withActor[T any](g *Gateway, key entity.ReservationKey, fn func(*Actor) (T, error)) (T, error) {
	var zero T
	if !key.Valid() {
		return zero, domain.ErrInvalidInput
	}
	for i := 0; i < retiredRetries; i++ {
		res, err := fn(g.actorFor(key))
		if errors.Is(err, errRetired) {
			continue
		}
		return res, err
	}
	return zero, errRetired
}

func keyOf(productID, warehouseID string) entity.ReservationKey {
	return entity.ReservationKey{ProductID: productID, WarehouseID: warehouseID}
}

// Reserve retiene quantity de (productID, warehouseID) para orderID.
func (g *Gateway) Reserve(ctx context.Context, productID, warehouseID, orderID string, quantity int, userID string) (rsv.ReserveResult, error) {
	if orderID == "" {
		return rsv.ReserveResult{}, domain.ErrInvalidInput
	}
	return withActor(g, keyOf(productID, warehouseID), func(a *Actor) (rsv.ReserveResult, error) {
		return a.Reserve(ctx, orderID, quantity, userID)
	})
}

// Confirm consolida en el ledger la reserva de orderID. Con userID no vacío solo el dueño
// de la reserva puede confirmarla (domain.ErrForbidden).
func (g *Gateway) Confirm(ctx context.Context, productID, warehouseID, orderID, userID string) (rsv.ConfirmResult, error) {
	if orderID == "" {
		return rsv.ConfirmResult{}, domain.ErrInvalidInput
	}
	return withActor(g, keyOf(productID, warehouseID), func(a *Actor) (rsv.ConfirmResult, error) {
		return a.Confirm(ctx, orderID, userID)
	})
}

// Release libera la reserva de orderID (idempotente). userID igual que en Confirm.
func (g *Gateway) Release(ctx context.Context, productID, warehouseID, orderID, userID string) (rsv.ReleaseResult, error) {
	if orderID == "" {
		return rsv.ReleaseResult{}, domain.ErrInvalidInput
	}
	return withActor(g, keyOf(productID, warehouseID), func(a *Actor) (rsv.ReleaseResult, error) {
		return a.Release(ctx, orderID, userID)
	})
}

// Check consulta la disponibilidad (no autoritativa).
func (g *Gateway) Check(ctx context.Context, productID, warehouseID string, quantity int) (rsv.CheckResult, error) {
	return withActor(g, keyOf(productID, warehouseID), func(a *Actor) (rsv.CheckResult, error) {
		return a.Check(ctx, quantity)
	})
}

// Restore incrementa el ledger en quantity pasando por el actor de la clave.
func (g *Gateway) Restore(ctx context.Context, productID, warehouseID string, quantity int) (int, error) {
	return withActor(g, keyOf(productID, warehouseID), func(a *Actor) (int, error) {
		return a.Restore(ctx, quantity)
	})
}

// ActorCount número de actores cargados.
func (g *Gateway) ActorCount() int {
	n := 0
	for _, s := range g.shards {
		s.mu.Lock()
		n += len(s.actors)
		s.mu.Unlock()
	}
	return n
}

func (g *Gateway) snapshot() []*Actor {
	var out []*Actor
	for _, s := range g.shards {
		s.mu.Lock()
		for _, a := range s.actors {
			out = append(out, a)
		}
		s.mu.Unlock()
	}
	return out
}

// Sweep ejecuta una pasada del janitor: barrido de vencidas en cada actor y descarga de inactivos.
// Devuelve cuántas reservas se liberaron.
func (g *Gateway) Sweep(ctx context.Context) int {
	total := 0
	for _, a := range g.snapshot() {
		actx, cancel := context.WithTimeout(ctx, g.opts.LoadTimeout)
		n, err := a.Cleanup(actx)
		cancel()
		if err != nil && !errors.Is(err, errRetired) {
			a.log.Warn().Err(err).Msg("barrido periódico fallido")
		}
		total += n
	}
	if g.opts.IdleEvict > 0 {
		g.evictIdle()
	}
	return total
}

func (g *Gateway) evictIdle() {
	now := g.opts.Clock()
	for _, s := range g.shards {
		s.mu.Lock()
		for k, a := range s.actors {
			if a.retireIfIdle(now, g.opts.IdleEvict) {
				delete(s.actors, k)
				activeActors.Dec()
			}
		}
		s.mu.Unlock()
	}
}

// Start lanza el janitor con periodo CleanupInterval hasta ctx.Done o Close.
func (g *Gateway) Start(ctx context.Context) {
	go func() {
		defer close(g.done)
		ticker := time.NewTicker(g.opts.CleanupInterval)
		defer ticker.Stop()
		g.log.Info().Dur("interval", g.opts.CleanupInterval).Msg("janitor de reservas iniciado")
		for {
			select {
			case <-ctx.Done():
				return
			case <-g.stop:
				return
			case <-ticker.C:
				if n := g.Sweep(ctx); n > 0 {
					g.log.Info().Int("expired", n).Msg("reservas vencidas liberadas")
				}
			}
		}
	}()
}

// Close detiene el janitor. Es seguro llamarlo varias veces.
func (g *Gateway) Close() {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
}

// Wait bloquea hasta que el janitor termine. Solo válido tras Start.
func (g *Gateway) Wait() {
	<-g.done
}
