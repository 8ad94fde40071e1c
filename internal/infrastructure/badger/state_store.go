package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.ReservationStateRepository = (*StateStore)(nil)

const keyPrefix = "reservas:actor:"

// StateStore guarda el estado de cada actor como JSON bajo reservas:actor:<producto>:<bodega>.
type StateStore struct {
	db *badger.DB
}

// NewStateStore construye el store sobre una base ya abierta.
func NewStateStore(db *badger.DB) *StateStore {
	return &StateStore{db: db}
}

func stateKey(key entity.ReservationKey) []byte {
	return []byte(keyPrefix + key.String())
}

// Load devuelve el estado guardado o nil si la clave no existe.
func (s *StateStore) Load(ctx context.Context, key entity.ReservationKey) (*entity.ActorState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var st *entity.ActorState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			st = &entity.ActorState{}
			return json.Unmarshal(val, st)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("leer estado %s: %w", key, err)
	}
	return st, nil
}

// Save reemplaza el estado de la clave.
func (s *StateStore) Save(ctx context.Context, key entity.ReservationKey, state *entity.ActorState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("codificar estado %s: %w", key, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey(key), raw)
	}); err != nil {
		return fmt.Errorf("guardar estado %s: %w", key, err)
	}
	return nil
}
