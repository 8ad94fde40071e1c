package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo repositorio de órdenes en memoria. Guarda copias para que los callers no compartan punteros.
type OrderRepo struct {
	mu     sync.RWMutex
	orders map[string]entity.Order
}

// NewOrderRepository construye el repositorio vacío.
func NewOrderRepository() *OrderRepo {
	return &OrderRepo{orders: make(map[string]entity.Order)}
}

// Create inserta la orden. Un id repetido devuelve domain.ErrConflict.
func (r *OrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return fmt.Errorf("orden %s: %w", order.ID, domain.ErrConflict)
	}
	r.orders[order.ID] = *order
	return nil
}

// GetByID devuelve una copia o nil si no existe o está borrada.
func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok || o.DeletedAt != nil {
		return nil, nil
	}
	return &o, nil
}

// ListByUser órdenes del usuario, más recientes primero.
func (r *OrderRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*entity.Order, error) {
	r.mu.RLock()
	var list []*entity.Order
	for _, o := range r.orders {
		if o.UserID == userID && o.DeletedAt == nil {
			o := o
			list = append(list, &o)
		}
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if offset >= len(list) {
		return []*entity.Order{}, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

// UpdateStatus compare-and-set sobre el estado guardado.
func (r *OrderRepo) UpdateStatus(_ context.Context, order *entity.Order, expectedStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[order.ID]
	if !ok || cur.DeletedAt != nil {
		return fmt.Errorf("orden %s: %w", order.ID, domain.ErrNotFound)
	}
	if cur.Status != expectedStatus {
		return fmt.Errorf("orden %s en estado %s, se esperaba %s: %w", order.ID, cur.Status, expectedStatus, domain.ErrConflict)
	}
	cur.Status = order.Status
	cur.PaymentID = order.PaymentID
	cur.OrderData = order.OrderData
	cur.UpdatedAt = order.UpdatedAt
	r.orders[order.ID] = cur
	return nil
}
