// handlers/email_routes.go
package handlers

import (
	"context"
	"errors"

	"raid-dashboard/apperrors"
	"raid-dashboard/middleware"
	"raid-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

type EmailSender interface {
	Send(ctx context.Context, msg services.EmailMessage) (map[string]interface{}, error)
}

// SetupEmailRoutes mounts the internal email relay.
func SetupEmailRoutes(app *fiber.App, serviceToken string, sender EmailSender) {
	app.Post("/api/email", middleware.ServiceTokenMiddleware(serviceToken), func(c *fiber.Ctx) error {
		var msg services.EmailMessage
		if err := c.BodyParser(&msg); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
		}

		data, err := sender.Send(c.UserContext(), msg)
		if err != nil {
			text := err.Error()
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				text = appErr.Message
			}
			return c.Status(statusFor(apperrors.KindOf(err))).JSON(fiber.Map{"success": false, "error": text})
		}
		return c.JSON(fiber.Map{"success": true, "data": data})
	})
}
