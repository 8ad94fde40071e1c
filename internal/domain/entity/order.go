package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la orden. La máquina de estados solo avanza (ver CanTransition).
const (
	OrderStatusPending          = "pending"
	OrderStatusPaymentInitiated = "payment_initiated"
	OrderStatusConfirmed        = "confirmed"
	OrderStatusExpired          = "expired" // pago capturado pero inventario perdido: requiere reembolso
	OrderStatusFailed           = "failed"
	OrderStatusCancelled        = "cancelled"

	// Estados de fulfilment; el saga no los asigna pero bloquean la cancelación.
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
)

var orderTransitions = map[string][]string{
	OrderStatusPending:          {OrderStatusPaymentInitiated, OrderStatusCancelled},
	OrderStatusPaymentInitiated: {OrderStatusConfirmed, OrderStatusExpired, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusConfirmed:        {OrderStatusProcessing},
	OrderStatusProcessing:       {OrderStatusShipped},
	OrderStatusShipped:          {OrderStatusDelivered},
}

// CanTransition indica si el paso from -> to está permitido.
func CanTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderProduct línea de la orden.
type OrderProduct struct {
	ProductID   string          `json:"product_id" validate:"required"`
	WarehouseID string          `json:"warehouse_id" validate:"required"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Currency    string          `json:"currency" validate:"required,len=3"`
}

// Key devuelve la clave de reserva de la línea.
func (p OrderProduct) Key() ReservationKey {
	return ReservationKey{ProductID: p.ProductID, WarehouseID: p.WarehouseID}
}

// Address dirección de envío o facturación.
type Address struct {
	Name       string   `json:"name,omitempty"`
	Line1      string   `json:"line1" validate:"required"`
	Line2      string   `json:"line2,omitempty"`
	City       string   `json:"city" validate:"required"`
	Region     string   `json:"region,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Country    string   `json:"country" validate:"required"`
	Phone      string   `json:"phone,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
}

// Costs totales calculados aguas arriba (precio y envío no se calculan aquí).
type Costs struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Delivery decimal.Decimal `json:"delivery"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total" validate:"gte=0"`
	Currency string          `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// OrderData contenido del carrito congelado en la orden.
type OrderData struct {
	Products        []OrderProduct `json:"products" validate:"required,min=1,dive"`
	ShippingAddress *Address       `json:"shipping_address" validate:"required"`
	BillingAddress  *Address       `json:"billing_address" validate:"required"`
	DeliveryMode    string         `json:"delivery_mode" validate:"required"`
	Costs           *Costs         `json:"costs" validate:"required"`
}

// Order orden de compra. Se crea una sola vez, cuando todas sus líneas quedaron reservadas.
// Nunca se borra físicamente (DeletedAt).
type Order struct {
	ID          string
	UserID      string
	CartID      string
	OrderData   OrderData
	UserData    json.RawMessage
	Status      string
	PaymentID   string
	TotalAmount decimal.Decimal
	Currency    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// OwnedBy indica si la orden pertenece al usuario.
func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}
