package http

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
)

// HeaderServiceKey header con la clave compartida entre servicios internos.
const HeaderServiceKey = "X-Service-Key"

// ServiceKeyMiddleware exige X-Service-Key igual a key. Con key vacía las rutas quedan cerradas.
func ServiceKeyMiddleware(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(HeaderServiceKey)
		if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "clave de servicio inválida"})
		}
		return c.Next()
	}
}
