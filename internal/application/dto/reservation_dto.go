package dto

// ReserveRequest cuerpo de POST /api/reservations/reserve. El usuario sale del token.
type ReserveRequest struct {
	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId"`
	OrderID     string `json:"orderId"`
	Quantity    int    `json:"quantity"`
}

// ReservationRefRequest cuerpo de confirm y release.
type ReservationRefRequest struct {
	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId"`
	OrderID     string `json:"orderId"`
}

// CheckQuery parámetros de GET /api/reservations/check.
type CheckQuery struct {
	ProductID   string `query:"productId"`
	WarehouseID string `query:"warehouseId"`
	Quantity    int    `query:"quantity"`
}
