// handlers/profile_routes.go
package handlers

import (
	"strconv"

	"raid-dashboard/apperrors"
	"raid-dashboard/middleware"
	"raid-dashboard/services"
	"raid-dashboard/utils"

	"github.com/gofiber/fiber/v2"
)

// ensureProfile creates the caller's profile on first contact so downstream
// handlers can assume it exists.
func ensureProfile(profiles *services.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := profiles.Ensure(c.UserContext(), currentUserID(c), currentUserEmail(c))
		if err != nil {
			return respondError(c, err)
		}
		c.Locals("profile", p)
		return c.Next()
	}
}

func SetupProfileRoutes(app *fiber.App, jwtSecret string, profiles *services.ProfileService, stream *services.ProfileStream) {
	// 🔓 Public
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := profiles.Leaderboard(c.UserContext(), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	})

	// 🔐 Secured
	auth := middleware.UserContextMiddleware(jwtSecret)

	app.Get("/profile", auth, ensureProfile(profiles), func(c *fiber.Ctx) error {
		return c.JSON(c.Locals("profile"))
	})

	app.Put("/profile", auth, ensureProfile(profiles), func(c *fiber.Ctx) error {
		var req services.ProfileUpdate
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		p, err := profiles.Update(c.UserContext(), currentUserID(c), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	app.Post("/profile/avatar", auth, ensureProfile(profiles), func(c *fiber.Ctx) error {
		fh, err := c.FormFile("avatar")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is required"})
		}
		body, err := utils.ReadMultipart(fh, services.MaxAvatarBytes)
		if err != nil {
			return respondError(c, apperrors.New(apperrors.KindInvalid, "could not read avatar", err))
		}
		p, err := profiles.UploadAvatar(c.UserContext(), currentUserID(c), body)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	app.Get("/profile/stream", middleware.SSEAuthMiddleware(jwtSecret), stream.Stream)
}
