package repository

import (
	"context"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// ReservationStateRepository persiste el estado durable de cada actor de reservas.
type ReservationStateRepository interface {
	// Load devuelve el estado guardado o nil si la clave nunca se persistió.
	Load(ctx context.Context, key entity.ReservationKey) (*entity.ActorState, error)
	Save(ctx context.Context, key entity.ReservationKey, state *entity.ActorState) error
}
