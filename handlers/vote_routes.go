// handlers/vote_routes.go
package handlers

import (
	"raid-dashboard/middleware"
	"raid-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

type castVoteRequest struct {
	OptionID string `json:"option_id" validate:"required,uuid"`
}

func SetupVoteRoutes(app *fiber.App, jwtSecret string, profiles *services.ProfileService, voteService *services.VoteService) {
	auth := middleware.UserContextMiddleware(jwtSecret)

	// 🔓 Public; the caller's own choice is included when a token is sent
	app.Get("/polls/:id/results", middleware.OptionalUserContext(jwtSecret), func(c *fiber.Ctx) error {
		res, err := voteService.Results(c.UserContext(), c.Params("id"), currentUserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	// 🔐 Secured
	app.Post("/polls/:id/votes", auth, ensureProfile(profiles), func(c *fiber.Ctx) error {
		var req castVoteRequest
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		vote, err := voteService.Cast(c.UserContext(), currentUserID(c), c.Params("id"), req.OptionID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(vote)
	})

	// 🛡️ Admin
	app.Post("/admin/polls", auth, middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var req services.CreatePollRequest
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		poll, err := voteService.CreatePoll(c.UserContext(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(poll)
	})
}
