package handlers

import (
	"badge-award-system/middleware"
	"badge-award-system/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupBadgeRoutes(app *fiber.App, badgeService *services.BadgeService, log *zap.SugaredLogger) {
	// Public reads — still behind gateway auth, no user context needed
	app.Get("/badges", badgeService.GetAllBadges)
	app.Get("/badges/:shortname", badgeService.GetBadge)

	// Admin writes
	admin := app.Group("/", middleware.UserContextMiddleware(log), middleware.RequireRole("admin"))
	admin.Post("/badges", badgeService.CreateBadge)
	admin.Put("/badges/:shortname", badgeService.UpdateBadge)
	admin.Delete("/badges/:shortname", badgeService.DeleteBadge)
	admin.Post("/badges/:shortname/image", badgeService.UploadBadgeImage)
}
