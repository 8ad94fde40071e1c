package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
	"github.com/jhoicas/Reservas-api/internal/application/order"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// OrderService casos de uso del saga de órdenes.
type OrderService interface {
	CreateOrder(ctx context.Context, in order.CreateOrderInput) (*entity.Order, error)
	InitiatePayment(ctx context.Context, orderID, userID string) (*order.PaymentSession, error)
	ConfirmOrder(ctx context.Context, orderID, userID, paymentRef string) (*entity.Order, error)
	CancelOrder(ctx context.Context, orderID, userID string) (*entity.Order, error)
	GetOrder(ctx context.Context, orderID, userID string) (*entity.Order, error)
	ListOrders(ctx context.Context, userID string, limit, offset int) ([]*entity.Order, error)
}

// OrderHandler endpoints de órdenes (protegidos; el usuario sale del token).
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler construye el handler.
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Create POST /api/orders
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return writeError(c, domain.ErrUnauthorized)
	}
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	o, err := h.svc.CreateOrder(c.UserContext(), order.CreateOrderInput{
		UserID:   userID,
		CartID:   in.CartID,
		Cart:     in.OrderData,
		UserData: in.UserData,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToOrderResponse(o))
}

// List GET /api/orders?limit=&offset=
func (h *OrderHandler) List(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return writeError(c, domain.ErrUnauthorized)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	if page.Limit > 100 {
		page.Limit = 100
	}
	list, err := h.svc.ListOrders(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.OrderListResponse{
		Orders: make([]dto.OrderResponse, 0, len(list)),
		Page:   dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, o := range list {
		out.Orders = append(out.Orders, dto.ToOrderResponse(o))
	}
	return c.JSON(out)
}

// Get GET /api/orders/:id
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	o, err := h.svc.GetOrder(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOrderResponse(o))
}

// InitiatePayment POST /api/orders/:id/payment
func (h *OrderHandler) InitiatePayment(c *fiber.Ctx) error {
	session, err := h.svc.InitiatePayment(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(session)
}

// Confirm POST /api/orders/:id/confirm
func (h *OrderHandler) Confirm(c *fiber.Ctx) error {
	var in dto.ConfirmOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	o, err := h.svc.ConfirmOrder(c.UserContext(), c.Params("id"), GetUserID(c), in.PaymentRef)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOrderResponse(o))
}

// Cancel POST /api/orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, err := h.svc.CancelOrder(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOrderResponse(o))
}
