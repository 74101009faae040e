// handlers/raid_routes.go
package handlers

import (
	"strconv"

	"raid-dashboard/middleware"
	"raid-dashboard/models"
	"raid-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

type logActionRequest struct {
	TweetID    string                `json:"tweet_id" validate:"required,max=256"`
	ActionType models.RaidActionType `json:"action_type" validate:"required,oneof=like reply retweet"`
}

func SetupRaidRoutes(app *fiber.App, jwtSecret string, profiles *services.ProfileService, raidService *services.RaidService) {
	auth := middleware.UserContextMiddleware(jwtSecret)

	// 🔐 Secured
	app.Post("/raids/actions", auth, ensureProfile(profiles), func(c *fiber.Ctx) error {
		var req logActionRequest
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		res, err := raidService.LogAction(c.UserContext(), currentUserID(c), req.TweetID, req.ActionType)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	app.Get("/raids/actions", auth, func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		actions, err := raidService.ListActions(c.UserContext(), currentUserID(c), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(actions)
	})

	// 🛡️ Admin
	app.Patch("/admin/raids/:id/verify", auth, middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		action, err := raidService.Verify(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(action)
	})
}
