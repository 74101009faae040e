// handlers/price_routes.go
package handlers

import (
	"context"

	"raid-dashboard/pricefeed"

	"github.com/gofiber/fiber/v2"
)

type PriceSource interface {
	Current(ctx context.Context) (*pricefeed.Snapshot, error)
}

func SetupPriceRoutes(app *fiber.App, prices PriceSource) {
	app.Get("/prices", func(c *fiber.Ctx) error {
		snap, err := prices.Current(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=30")
		return c.JSON(snap)
	})
}
