// handlers/reward_routes.go
package handlers

import (
	"strconv"

	"raid-dashboard/middleware"
	"raid-dashboard/models"
	"raid-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

type claimStatusRequest struct {
	Status models.ClaimStatus `json:"status" validate:"required,oneof=fulfilled rejected"`
}

func SetupRewardRoutes(
	app *fiber.App,
	jwtSecret string,
	profiles *services.ProfileService,
	pointsService *services.PointsService,
	rewardService *services.RewardService,
) {
	// 🔐 Secured
	auth := middleware.UserContextMiddleware(jwtSecret)
	ensure := ensureProfile(profiles)

	app.Get("/points", auth, ensure, func(c *fiber.Ctx) error {
		balance, err := pointsService.Balance(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"raid_points": balance})
	})

	app.Get("/rewards", func(c *fiber.Ctx) error {
		return c.JSON(rewardService.Catalog())
	})

	app.Post("/rewards/claim", auth, ensure, func(c *fiber.Ctx) error {
		var req services.ClaimRequest
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		if req.Email == "" {
			req.Email = currentUserEmail(c)
		}
		claim, err := rewardService.Claim(c.UserContext(), currentUserID(c), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	})

	app.Get("/rewards/claims", auth, func(c *fiber.Ctx) error {
		claims, err := rewardService.ListClaims(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(claims)
	})

	// 🛡️ Admin
	requireAdmin := middleware.RequireAdmin()

	app.Get("/admin/claims", auth, requireAdmin, func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		claims, total, err := rewardService.ListAllClaims(c.UserContext(), services.ClaimFilter{
			Status: models.ClaimStatus(c.Query("status")),
			Page:   page,
			Size:   size,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"claims": claims, "total": total, "page": page, "size": size})
	})

	app.Patch("/admin/claims/:id/status", auth, requireAdmin, func(c *fiber.Ctx) error {
		var req claimStatusRequest
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		claim, err := rewardService.UpdateClaimStatus(c.UserContext(), c.Params("id"), req.Status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(claim)
	})
}
