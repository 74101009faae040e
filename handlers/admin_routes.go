// handlers/admin_routes.go
package handlers

import (
	"context"

	"raid-dashboard/logger"
	"raid-dashboard/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserDeleter removes an auth user upstream.
type UserDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

// LocalDataDeleter removes the rows this service keeps for a user.
type LocalDataDeleter interface {
	Delete(ctx context.Context, userID string) error
}

type deleteUserRequest struct {
	UserID string `json:"user_id"`
}

// SetupAdminRoutes mounts the user deletion endpoint on /api/deleteUser and
// /deleteUser. Both answer any origin and only accept POST.
func SetupAdminRoutes(app *fiber.App, jwtSecret, serviceToken string, users UserDeleter, local LocalDataDeleter) {
	openCORS := cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST,OPTIONS",
		AllowHeaders: "authorization, x-client-info, apikey, content-type",
	})
	guard := middleware.AdminOrServiceToken(jwtSecret, serviceToken)
	handler := deleteUserHandler(users, local)

	for _, path := range []string{"/api/deleteUser", "/deleteUser"} {
		app.All(path, openCORS, postOnly, guard, handler)
	}
}

func postOnly(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "Method not allowed"})
	}
	return c.Next()
}

func deleteUserHandler(users UserDeleter, local LocalDataDeleter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteUserRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}
		if _, err := uuid.Parse(req.UserID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id must be a valid UUID"})
		}

		log := logger.WithFields(logrus.Fields{"user_id": req.UserID, "by": c.Locals(middleware.LocalUserID)})

		if err := users.DeleteUser(c.UserContext(), req.UserID); err != nil {
			log.Errorf("[ADMIN] delete user failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if local != nil {
			if err := local.Delete(c.UserContext(), req.UserID); err != nil {
				log.Errorf("[ADMIN] auth user deleted but local cleanup failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
		}

		log.Info("[ADMIN] user deleted")
		return c.JSON(fiber.Map{"success": true, "message": "User deleted successfully"})
	}
}
