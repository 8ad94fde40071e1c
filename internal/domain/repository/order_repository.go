package repository

import (
	"context"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia para Order.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	// GetByID devuelve nil, nil si la orden no existe o está borrada lógicamente.
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Order, error)

	// UpdateStatus guarda status, payment_id y order_data solo si el estado persistido
	// sigue siendo expectedStatus (compare-and-set). Devuelve domain.ErrConflict si no.
	UpdateStatus(ctx context.Context, order *entity.Order, expectedStatus string) error
}
