package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// CreateOrderRequest cuerpo de POST /api/orders.
type CreateOrderRequest struct {
	CartID    string           `json:"cart_id"`
	OrderData entity.OrderData `json:"order_data"`
	UserData  json.RawMessage  `json:"user_data,omitempty"`
}

// ConfirmOrderRequest cuerpo opcional de POST /api/orders/:id/confirm.
// Sin payment_ref se usa el pago registrado al iniciar.
type ConfirmOrderRequest struct {
	PaymentRef string `json:"payment_ref"`
}

// OrderResponse orden expuesta por la API.
type OrderResponse struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	CartID      string           `json:"cart_id,omitempty"`
	Status      string           `json:"status"`
	PaymentID   string           `json:"payment_id,omitempty"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Currency    string           `json:"currency"`
	OrderData   entity.OrderData `json:"order_data"`
	UserData    json.RawMessage  `json:"user_data,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// OrderListResponse página de órdenes del usuario.
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Page   PageResponse    `json:"page"`
}

// ToOrderResponse convierte la entidad.
func ToOrderResponse(o *entity.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		CartID:      o.CartID,
		Status:      o.Status,
		PaymentID:   o.PaymentID,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		OrderData:   o.OrderData,
		UserData:    o.UserData,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
