package entity

import "time"

// ReservationKey identifica un par (producto, bodega). Es la unidad de serialización:
// todas las operaciones sobre la misma clave se ejecutan en orden total.
type ReservationKey struct {
	ProductID   string
	WarehouseID string
}

// String devuelve la clave en formato "producto:bodega" (logs y claves KV).
func (k ReservationKey) String() string {
	return k.ProductID + ":" + k.WarehouseID
}

// Valid indica si ambos componentes están presentes.
func (k ReservationKey) Valid() bool {
	return k.ProductID != "" && k.WarehouseID != ""
}

// Reservation retención temporal de cantidad para una orden. Única por (clave, order_id).
type Reservation struct {
	OrderID   string    `json:"order_id"`
	Quantity  int       `json:"quantity"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired indica si la reserva ya venció en el instante now.
func (r Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// StockCache copia local de la cantidad del ledger, con la hora de la última sincronización.
type StockCache struct {
	Quantity     int       `json:"quantity"`
	LastSyncTime time.Time `json:"last_sync_time"`
}

// ActorState estado durable de un actor de reservas (uno por clave).
// StockCache es nil hasta la primera sincronización con el ledger.
type ActorState struct {
	StockCache   *StockCache            `json:"stock_cache,omitempty"`
	Reservations map[string]Reservation `json:"reservations"`
}

// NewActorState devuelve un estado vacío listo para usar.
func NewActorState() *ActorState {
	return &ActorState{Reservations: make(map[string]Reservation)}
}

// Reserved suma las cantidades de las reservas vigentes en now.
func (s *ActorState) Reserved(now time.Time) int {
	total := 0
	for _, r := range s.Reservations {
		if !r.Expired(now) {
			total += r.Quantity
		}
	}
	return total
}

// Available = stock_cache - Σ reservas vigentes. Sin caché devuelve 0.
func (s *ActorState) Available(now time.Time) int {
	if s.StockCache == nil {
		return 0
	}
	return s.StockCache.Quantity - s.Reserved(now)
}

// PurgeExpired elimina las reservas vencidas y devuelve las eliminadas.
func (s *ActorState) PurgeExpired(now time.Time) []Reservation {
	var purged []Reservation
	for id, r := range s.Reservations {
		if r.Expired(now) {
			purged = append(purged, r)
			delete(s.Reservations, id)
		}
	}
	return purged
}

// Clone copia profunda (para revertir cambios si falla la persistencia).
func (s *ActorState) Clone() *ActorState {
	out := &ActorState{Reservations: make(map[string]Reservation, len(s.Reservations))}
	if s.StockCache != nil {
		c := *s.StockCache
		out.StockCache = &c
	}
	for id, r := range s.Reservations {
		out.Reservations[id] = r
	}
	return out
}
