// middleware/gateway.go
package middleware

import (
	"crypto/subtle"

	"raid-dashboard/logger"

	"github.com/gofiber/fiber/v2"
)

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ServiceTokenMiddleware guards server-to-server routes with a shared bearer
// token. With no token configured every request is refused.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		logger.Warn("[SERVICE_AUTH] INTERNAL_SERVICE_TOKEN is not set; internal routes are disabled")
	}

	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "internal routes are not configured",
			})
		}

		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service token missing",
			})
		}
		if !tokensEqual(token, expectedToken) {
			logger.Warnf("[SERVICE_AUTH] invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}

		c.Locals(LocalService, true)
		return c.Next()
	}
}
