package handlers

import (
	"badge-award-system/middleware"
	"badge-award-system/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupAwardRoutes(app *fiber.App, awards *services.AwardService, recommendations *services.RecommendationService, badges *services.BadgeService, log *zap.SugaredLogger) {
	secured := app.Group("/", middleware.UserContextMiddleware(log))

	secured.Get("/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		instances, err := awards.ListInstances(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list badges", "cause": err.Error()})
		}
		return c.JSON(instances)
	})

	secured.Post("/user/badges/:id/seen", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		found, err := awards.MarkSeen(c.Params("id"), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to mark badge seen", "cause": err.Error()})
		}
		if !found {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge instance not found"})
		}
		return c.JSON(fiber.Map{"message": "marked seen"})
	})

	// Earnability progress toward one badge.
	secured.Get("/badges/:shortname/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		badge, err := badges.FindBadge(c.Params("shortname"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if badge == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
		}

		remaining, err := awards.CreditsUntilAward(badge, userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute progress", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{
			"badge":     badge.ShortName,
			"earnable":  len(remaining) == 0,
			"remaining": remaining,
		})
	})

	// Record behavior credits; newly earnable badges are awarded on the spot.
	secured.Post("/user/credits", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			Behaviors []string `json:"behaviors"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || len(req.Behaviors) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "behaviors are required"})
		}

		awarded, err := awards.AwardCredits(userID, req.Behaviors...)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record credits", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"awarded": awarded})
	})

	secured.Delete("/user/data", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := awards.PurgeUserData(userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to purge user data", "cause": err.Error()})
		}
		log.Infow("user data purged", "user", userID)
		return c.SendStatus(fiber.StatusNoContent)
	})

	secured.Get("/recommendations", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		result, err := recommendations.GetRecommendations(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build recommendations", "cause": err.Error()})
		}
		return c.JSON(result)
	})

	app.Get("/badges/:shortname/similar", func(c *fiber.Ctx) error {
		badge, err := badges.FindBadge(c.Params("shortname"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if badge == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
		}
		similar, err := recommendations.GetSimilar(badge, c.Get("X-User-ID"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to find similar badges", "cause": err.Error()})
		}
		return c.JSON(similar)
	})
}
