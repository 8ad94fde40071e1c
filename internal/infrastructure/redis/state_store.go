package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.ReservationStateRepository = (*StateStore)(nil)

// StateStore guarda el estado de cada actor como JSON sin expiración.
type StateStore struct {
	rdb goredis.UniversalClient
}

func NewStateStore(rdb goredis.UniversalClient) *StateStore {
	return &StateStore{rdb: rdb}
}

func (s *StateStore) Load(ctx context.Context, key entity.ReservationKey) (*entity.ActorState, error) {
	raw, err := s.rdb.Get(ctx, stateKey(key.ProductID, key.WarehouseID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get estado %s: %w", key, err)
	}
	st := entity.NewActorState()
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decodificar estado %s: %w", key, err)
	}
	if st.Reservations == nil {
		st.Reservations = make(map[string]entity.Reservation)
	}
	return st, nil
}

func (s *StateStore) Save(ctx context.Context, key entity.ReservationKey, state *entity.ActorState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("codificar estado %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, stateKey(key.ProductID, key.WarehouseID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set estado %s: %w", key, err)
	}
	return nil
}
