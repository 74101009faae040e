// handlers/progression_routes.go
package handlers

import (
	"raid-dashboard/middleware"
	"raid-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

type grantXPRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	XP     int64  `json:"xp" validate:"required,gt=0,lte=1000000"`
	Reason string `json:"reason" validate:"max=120"`
}

func SetupProgressionRoutes(app *fiber.App, jwtSecret string, progressionService *services.ProgressionService) {
	// 🔓 Public
	app.Get("/ranks", func(c *fiber.Ctx) error {
		ranks, err := progressionService.Ranks(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(ranks)
	})

	// 🛡️ Admin
	admin := []fiber.Handler{middleware.UserContextMiddleware(jwtSecret), middleware.RequireAdmin()}

	app.Post("/admin/xp/grant", append(admin, func(c *fiber.Ctx) error {
		var req grantXPRequest
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		reason := req.Reason
		if reason == "" {
			reason = "admin_grant"
		}
		res, err := progressionService.AwardXP(c.UserContext(), req.UserID, req.XP, reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})...)
}
