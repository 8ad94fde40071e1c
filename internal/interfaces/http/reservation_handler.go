package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
	"github.com/jhoicas/Reservas-api/internal/domain"
	rsv "github.com/jhoicas/Reservas-api/internal/domain/reservation"
)

// ReservationService operaciones del gateway de reservas expuestas por HTTP.
type ReservationService interface {
	Reserve(ctx context.Context, productID, warehouseID, orderID string, quantity int, userID string) (rsv.ReserveResult, error)
	Confirm(ctx context.Context, productID, warehouseID, orderID, userID string) (rsv.ConfirmResult, error)
	Release(ctx context.Context, productID, warehouseID, orderID, userID string) (rsv.ReleaseResult, error)
	Check(ctx context.Context, productID, warehouseID string, quantity int) (rsv.CheckResult, error)
}

// ReservationHandler RPC de reservas. Los fallos de negocio responden 200 con success=false.
type ReservationHandler struct {
	svc ReservationService
}

// NewReservationHandler construye el handler.
func NewReservationHandler(svc ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// Reserve POST /api/reservations/reserve
func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return writeError(c, domain.ErrUnauthorized)
	}
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Reserve(c.UserContext(), in.ProductID, in.WarehouseID, in.OrderID, in.Quantity, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Confirm POST /internal/reservations/confirm (solo con clave de servicio).
// Los usuarios consolidan stock a través de POST /api/orders/:id/confirm, que exige el pago.
func (h *ReservationHandler) Confirm(c *fiber.Ctx) error {
	var in dto.ReservationRefRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Confirm(c.UserContext(), in.ProductID, in.WarehouseID, in.OrderID, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Release POST /api/reservations/release. Solo el dueño de la reserva puede liberarla.
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return writeError(c, domain.ErrUnauthorized)
	}
	var in dto.ReservationRefRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Release(c.UserContext(), in.ProductID, in.WarehouseID, in.OrderID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Check GET /api/reservations/check?productId=&warehouseId=&quantity=
func (h *ReservationHandler) Check(c *fiber.Ctx) error {
	var q dto.CheckQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros inválidos"})
	}
	res, err := h.svc.Check(c.UserContext(), q.ProductID, q.WarehouseID, q.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}
