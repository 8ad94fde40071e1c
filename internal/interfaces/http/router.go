package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ServiceName  string
	Reservations ReservationService
	Orders       OrderService
	JWTSecret    string
	ServiceKey   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	reservations := api.Group("/reservations")
	reservationHandler := NewReservationHandler(deps.Reservations)
	reservations.Post("/reserve", reservationHandler.Reserve)
	reservations.Post("/release", reservationHandler.Release)
	reservations.Get("/check", reservationHandler.Check)

	orders := api.Group("/orders")
	orderHandler := NewOrderHandler(deps.Orders)
	orders.Post("/", orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.Get)
	orders.Post("/:id/payment", orderHandler.InitiatePayment)
	orders.Post("/:id/confirm", orderHandler.Confirm)
	orders.Post("/:id/cancel", orderHandler.Cancel)

	internal := app.Group("/internal", ServiceKeyMiddleware(deps.ServiceKey))
	internal.Post("/reservations/confirm", reservationHandler.Confirm)
}
