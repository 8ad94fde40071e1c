package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación de OrderRepository (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, user_id, cart_id, order_data, user_data, status, payment_id,
	total_amount, currency, created_at, updated_at, deleted_at`

// Create persiste la orden.
func (r *OrderRepo) Create(ctx context.Context, order *entity.Order) error {
	data, err := json.Marshal(order.OrderData)
	if err != nil {
		return fmt.Errorf("encode order_data: %w", err)
	}
	var userData []byte
	if len(order.UserData) > 0 {
		userData = order.UserData
	}
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL)`
	_, err = r.q.Exec(ctx, query,
		order.ID, order.UserID, nullIfEmpty(order.CartID), data, userData, order.Status,
		nullIfEmpty(order.PaymentID), order.TotalAmount, order.Currency, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s already exists: %w", order.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var o entity.Order
	var cartID, paymentID *string
	var data, userData []byte
	err := row.Scan(
		&o.ID, &o.UserID, &cartID, &data, &userData, &o.Status, &paymentID,
		&o.TotalAmount, &o.Currency, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &o.OrderData); err != nil {
		return nil, fmt.Errorf("decode order_data %s: %w", o.ID, err)
	}
	if len(userData) > 0 {
		o.UserData = json.RawMessage(userData)
	}
	o.CartID = derefString(cartID)
	o.PaymentID = derefString(paymentID)
	return &o, nil
}

// GetByID obtiene una orden no borrada por ID.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND deleted_at IS NULL`
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListByUser órdenes del usuario, más recientes primero.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return list, nil
}

// UpdateStatus actualiza estado, payment_id y order_data solo si el estado guardado es expectedStatus.
func (r *OrderRepo) UpdateStatus(ctx context.Context, order *entity.Order, expectedStatus string) error {
	data, err := json.Marshal(order.OrderData)
	if err != nil {
		return fmt.Errorf("encode order_data: %w", err)
	}
	query := `
		UPDATE orders
		SET status     = $2,
		    payment_id = COALESCE($3, payment_id),
		    order_data = $4,
		    updated_at = $5
		WHERE id = $1 AND status = $6 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query,
		order.ID, order.Status, nullIfEmpty(order.PaymentID), data, order.UpdatedAt, expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s no está en estado %s: %w", order.ID, expectedStatus, domain.ErrConflict)
	}
	return nil
}
