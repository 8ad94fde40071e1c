package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
	"github.com/jhoicas/Reservas-api/internal/application/order"
	"github.com/jhoicas/Reservas-api/internal/domain"
)

// writeError traduce los errores de domain (directos o dentro de un SagaError) a HTTP.
func writeError(c *fiber.Ctx, err error) error {
	body := dto.ErrorResponse{Message: err.Error()}
	var sagaErr *order.SagaError
	if errors.As(err, &sagaErr) {
		body.OrderID = sagaErr.OrderID
		body.Reason = string(sagaErr.Reason)
		body.ProductID = sagaErr.ProductID
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, body.Code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnauthorized):
		status, body.Code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, body.Code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		status, body.Code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, body.Code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrConflict):
		status, body.Code = fiber.StatusConflict, "INVALID_STATUS"
	case errors.Is(err, domain.ErrExpired):
		status, body.Code = fiber.StatusConflict, "ORDER_EXPIRED"
		body.Message = "el pago se capturó pero el inventario ya no está disponible; se gestionará el reembolso"
	case errors.Is(err, domain.ErrCommitConflict):
		status, body.Code = fiber.StatusConflict, "COMMIT_FAILED"
	case errors.Is(err, domain.ErrUpstream):
		status, body.Code = fiber.StatusBadGateway, "UPSTREAM"
	default:
		body.Code = "INTERNAL"
		body.Message = "error interno"
	}
	return c.Status(status).JSON(body)
}
