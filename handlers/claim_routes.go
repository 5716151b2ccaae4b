package handlers

import (
	"errors"
	"fmt"

	"badge-award-system/middleware"
	"badge-award-system/models"
	"badge-award-system/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxGeneratedCodes caps one generation request well below the phrase space
// so a single call cannot exhaust the shared code namespace.
const maxGeneratedCodes = 10000

func SetupClaimRoutes(app *fiber.App, codes *services.ClaimCodeService, awards *services.AwardService, badges *services.BadgeService, log *zap.SugaredLogger) {
	admin := app.Group("/", middleware.UserContextMiddleware(log), middleware.RequireRole("admin"))

	// Attach caller-chosen codes to a badge.
	admin.Post("/badges/:shortname/codes", func(c *fiber.Ctx) error {
		badge, err := badges.FindBadge(c.Params("shortname"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if badge == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
		}

		type Req struct {
			Codes       []string `json:"codes"`
			Limit       *int     `json:"limit,omitempty"`
			Multi       bool     `json:"multi"`
			ReservedFor string   `json:"reserved_for"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		limit := -1
		if req.Limit != nil {
			limit = *req.Limit
		}

		accepted, rejected, err := codes.AddClaimCodes(badge, req.Codes, limit, req.Multi, req.ReservedFor, false)
		if err != nil {
			if errors.Is(err, services.ErrInvalidArgument) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to add claim codes", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"accepted": accepted, "rejected": rejected})
	})

	// Generate fresh codes from the phrase generator.
	admin.Post("/badges/:shortname/codes/generate", func(c *fiber.Ctx) error {
		badge, err := badges.FindBadge(c.Params("shortname"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if badge == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
		}

		type Req struct {
			Count       int    `json:"count"`
			ReservedFor string `json:"reserved_for"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Count > maxGeneratedCodes {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("count exceeds maximum of %d codes per request", maxGeneratedCodes)})
		}

		generated, err := codes.GenerateClaimCodes(badge, req.Count, req.ReservedFor)
		if err != nil {
			if errors.Is(err, services.ErrGeneratorExhausted) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate claim codes", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"codes": generated})
	})

	admin.Get("/badges/:shortname/codes", func(c *fiber.Ctx) error {
		badge, err := badges.FindBadge(c.Params("shortname"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if badge == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
		}
		list, err := codes.ListClaimCodes(badge.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list claim codes", "cause": err.Error()})
		}
		return c.JSON(list)
	})

	// Reserve one code for a specific recipient and notify them.
	admin.Post("/badges/:shortname/reserve", func(c *fiber.Ctx) error {
		badge, err := badges.FindBadge(c.Params("shortname"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if badge == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
		}

		type Req struct {
			UserID string `json:"user_id" validate:"required"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}

		code, err := awards.ReserveAndNotify(badge, req.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reserve code", "cause": err.Error()})
		}
		if code == "" {
			return c.JSON(fiber.Map{"message": "user already holds this badge"})
		}
		return c.JSON(fiber.Map{"code": code})
	})

	app.Get("/codes/:code", func(c *fiber.Ctx) error {
		cc, err := codes.GetClaimCode(c.Params("code"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if cc == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "code not found"})
		}
		return c.JSON(fiber.Map{
			"code":    cc.Code,
			"multi":   cc.Multi,
			"claimed": cc.Claimed(),
		})
	})

	admin.Post("/codes/:code/release", func(c *fiber.Ctx) error {
		found, err := codes.ReleaseClaimCode(c.Params("code"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to release code", "cause": err.Error()})
		}
		if !found {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "code not found"})
		}
		return c.JSON(fiber.Map{"message": "code released"})
	})

	admin.Delete("/codes/:code", func(c *fiber.Ctx) error {
		found, err := codes.RemoveClaimCode(c.Params("code"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to remove code", "cause": err.Error()})
		}
		if !found {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "code not found"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Redeem: claim the code, then award its badge. The award is idempotent,
	// so re-redeeming a code you hold does not duplicate the instance.
	secured := app.Group("/", middleware.UserContextMiddleware(log))
	secured.Post("/codes/:code/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		ok, found, err := codes.RedeemClaimCode(c.Params("code"), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to redeem code", "cause": err.Error()})
		}
		if !found {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "code not found"})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "code already claimed"})
		}

		cc, err := codes.GetClaimCode(c.Params("code"))
		if err != nil || cc == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "code vanished during redemption"})
		}
		var badge models.Badge
		if err := awards.DB.First(&badge, "id = ?", cc.BadgeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}

		instance, cascaded, err := awards.Award(&badge, userID, true)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "award failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{
			"badge":    badge.ShortName,
			"instance": instance,
			"cascaded": cascaded,
		})
	})
}
