package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.ReservationStateRepository = (*ReservationStateRepo)(nil)

// ReservationStateRepo guarda el estado de cada actor como JSONB en reservation_actor_state.
type ReservationStateRepo struct {
	q Querier
}

// NewReservationStateRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationStateRepository(q Querier) *ReservationStateRepo {
	return &ReservationStateRepo{q: q}
}

// Load devuelve el estado guardado o nil si la clave nunca se persistió.
func (r *ReservationStateRepo) Load(ctx context.Context, key entity.ReservationKey) (*entity.ActorState, error) {
	query := `SELECT state FROM reservation_actor_state WHERE product_id = $1 AND warehouse_id = $2`
	var raw []byte
	err := r.q.QueryRow(ctx, query, key.ProductID, key.WarehouseID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get actor state: %w", err)
	}
	var st entity.ActorState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode actor state %s: %w", key, err)
	}
	return &st, nil
}

// Save reemplaza el estado de la clave.
func (r *ReservationStateRepo) Save(ctx context.Context, key entity.ReservationKey, state *entity.ActorState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode actor state %s: %w", key, err)
	}
	query := `
		INSERT INTO reservation_actor_state (product_id, warehouse_id, state, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, key.ProductID, key.WarehouseID, raw); err != nil {
		return fmt.Errorf("upsert actor state: %w", err)
	}
	return nil
}
