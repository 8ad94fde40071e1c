package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.ReservationStateRepository = (*ReservationStateRepo)(nil)

// ReservationStateRepo guarda copias del estado de cada actor.
type ReservationStateRepo struct {
	mu     sync.Mutex
	states map[entity.ReservationKey]*entity.ActorState
	saves  int
}

// NewReservationStateRepository construye el repositorio vacío.
func NewReservationStateRepository() *ReservationStateRepo {
	return &ReservationStateRepo{states: make(map[entity.ReservationKey]*entity.ActorState)}
}

// Load devuelve una copia del estado o nil si no existe.
func (r *ReservationStateRepo) Load(_ context.Context, key entity.ReservationKey) (*entity.ActorState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[key]
	if !ok {
		return nil, nil
	}
	return st.Clone(), nil
}

// Save guarda una copia del estado.
func (r *ReservationStateRepo) Save(_ context.Context, key entity.ReservationKey, state *entity.ActorState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[key] = state.Clone()
	r.saves++
	return nil
}

// Saves número de escrituras realizadas.
func (r *ReservationStateRepo) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
