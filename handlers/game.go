// handlers/game.go
package handlers

import (
	"raid-dashboard/games"
	"raid-dashboard/middleware"
	"raid-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

type playRequest struct {
	// Pick is the card index for pick-a-card.
	Pick int `json:"pick" validate:"gte=0,lte=2"`
}

func SetupGameRoutes(app *fiber.App, jwtSecret string, profiles *services.ProfileService, minigames *services.MinigameService) {
	// 🔓 Public
	app.Get("/games", func(c *fiber.Ctx) error {
		return c.JSON(minigames.Games())
	})

	// 🔐 Secured
	app.Post("/games/:game/play",
		middleware.UserContextMiddleware(jwtSecret),
		ensureProfile(profiles),
		func(c *fiber.Ctx) error {
			var req playRequest
			if len(c.Body()) > 0 {
				if ok, err := parseAndValidate(c, &req); !ok {
					return err
				}
			}
			res, err := minigames.Play(c.UserContext(), currentUserID(c), games.Kind(c.Params("game")), req.Pick)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(res)
		})
}
