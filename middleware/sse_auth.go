// middleware/sse_auth.go
package middleware

import (
	"strings"

	"raid-dashboard/logger"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource requests, which cannot set
// headers, from the `token` query parameter. A bearer header is accepted too.
//
// Usage:
//
//	app.Get("/profile/stream", middleware.SSEAuthMiddleware(secret), stream.Stream)
func SSEAuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		claims, err := ParseSupabaseToken(jwtSecret, token)
		if err != nil {
			logger.Debugf("[SSEAuth] validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		attachClaims(c, claims)
		return c.Next()
	}
}
