package http

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/servo98/express-invoices/internal/application/dto"
)

// RequireCronSecret protege los endpoints de cron con "Authorization: Bearer <CRON_SECRET>".
//
// Comportamiento:
//   - secret vacío: no se exige nada (desarrollo local).
//   - header ausente o distinto: 401.
func RequireCronSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		token, problem := bearerToken(c.Get("Authorization"))
		if problem != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(problem)
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "cron secret inválido",
			})
		}
		return c.Next()
	}
}
