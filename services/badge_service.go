package services

import (
	"errors"
	"fmt"
	"path/filepath"

	"badge-award-system/models"
	"badge-award-system/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validate = validator.New()

type BadgeService struct {
	DB  *gorm.DB
	Log *zap.SugaredLogger
}

func NewBadgeService(db *gorm.DB, log *zap.SugaredLogger) *BadgeService {
	return &BadgeService{DB: db, Log: log}
}

// BadgePayload is the create/update request body.
type BadgePayload struct {
	Name                string           `json:"name" validate:"required,max=128"`
	ShortName           string           `json:"short_name" validate:"max=64"`
	Description         string           `json:"description" validate:"max=2048"`
	Type                string           `json:"type" validate:"omitempty,oneof=skill participation offline achievement"`
	Behaviors           map[string]int64 `json:"behaviors"`
	Categories          []string         `json:"categories"`
	CategoryAward       string           `json:"category_award"`
	CategoryWeight      int64            `json:"category_weight" validate:"min=0"`
	CategoryRequirement int64            `json:"category_requirement" validate:"min=0"`
}

// CreateBadge registers a new badge definition. ShortName defaults to a slug
// of the name.
func (s *BadgeService) CreateBadge(c *fiber.Ctx) error {
	var req BadgePayload
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "cause": err.Error()})
	}
	if err := validateRole(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	shortName := req.ShortName
	if shortName == "" {
		shortName = slug.Make(req.Name)
	}

	badge := models.Badge{
		Name:                req.Name,
		ShortName:           shortName,
		Description:         req.Description,
		Type:                req.Type,
		Behaviors:           req.Behaviors,
		Categories:          req.Categories,
		CategoryAward:       req.CategoryAward,
		CategoryWeight:      req.CategoryWeight,
		CategoryRequirement: req.CategoryRequirement,
	}
	if err := s.DB.Create(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "badge name or short name already in use"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create badge", "cause": err.Error()})
	}
	s.Log.Infow("badge created", "badge", badge.ShortName)
	return c.Status(fiber.StatusCreated).JSON(badge)
}

// UpdateBadge replaces the mutable fields of an existing badge.
func (s *BadgeService) UpdateBadge(c *fiber.Ctx) error {
	badge, err := s.FindBadge(c.Params("shortname"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
	}
	if badge == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
	}

	var req BadgePayload
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "cause": err.Error()})
	}
	if err := validateRole(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	badge.Name = req.Name
	badge.Description = req.Description
	badge.Type = req.Type
	badge.Behaviors = req.Behaviors
	badge.Categories = req.Categories
	badge.CategoryAward = req.CategoryAward
	badge.CategoryWeight = req.CategoryWeight
	badge.CategoryRequirement = req.CategoryRequirement
	if req.ShortName != "" {
		badge.ShortName = req.ShortName
	}

	if err := s.DB.Save(badge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "badge name or short name already in use"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update badge", "cause": err.Error()})
	}
	return c.JSON(badge)
}

// GetAllBadges lists badge definitions, optionally filtered by category.
func (s *BadgeService) GetAllBadges(c *fiber.Ctx) error {
	var badges []models.Badge
	if err := s.DB.Order("name ASC").Find(&badges).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list badges", "cause": err.Error()})
	}
	if category := c.Query("category"); category != "" {
		filtered := badges[:0]
		for _, b := range badges {
			if b.HasCategory(category) {
				filtered = append(filtered, b)
			}
		}
		badges = filtered
	}
	return c.JSON(badges)
}

// GetBadge returns one badge with its claim codes.
func (s *BadgeService) GetBadge(c *fiber.Ctx) error {
	var badge models.Badge
	err := s.DB.Preload("ClaimCodes").Where("short_name = ?", c.Params("shortname")).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
	}
	return c.JSON(badge)
}

// DeleteBadge removes a badge; its claim codes go with it.
func (s *BadgeService) DeleteBadge(c *fiber.Ctx) error {
	badge, err := s.FindBadge(c.Params("shortname"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
	}
	if badge == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
	}
	if err := s.DB.Select("ClaimCodes").Delete(badge).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete badge", "cause": err.Error()})
	}
	s.Log.Infow("badge deleted", "badge", badge.ShortName)
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadBadgeImage stores badge art in R2 and records the public URL.
func (s *BadgeService) UploadBadgeImage(c *fiber.Ctx) error {
	badge, err := s.FindBadge(c.Params("shortname"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
	}
	if badge == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image is required"})
	}
	if file.Size > 2*1024*1024 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image too large (max 2MB)"})
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := "badges/" + badge.ShortName + "-" + uuid.NewString() + ext
	url, err := utils.UploadFileToR2(file, key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload badge image", "cause": err.Error()})
	}

	badge.ImageURL = url
	if err := s.DB.Save(badge).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save image URL", "cause": err.Error()})
	}
	return c.JSON(fiber.Map{"image_url": url})
}

// FindBadge fetches a badge by short name; nil when absent.
func (s *BadgeService) FindBadge(shortName string) (*models.Badge, error) {
	var badge models.Badge
	err := s.DB.Where("short_name = ?", shortName).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// validateRole enforces capstone XOR contributor at write time.
func validateRole(req *BadgePayload) error {
	if req.CategoryWeight > 0 && req.CategoryRequirement > 0 {
		return fmt.Errorf("badge cannot both contribute a category weight and require a category score")
	}
	if req.CategoryRequirement > 0 && req.CategoryAward == "" {
		return fmt.Errorf("capstone badges must declare the category they award")
	}
	if req.CategoryAward != "" && req.CategoryRequirement <= 0 {
		return fmt.Errorf("capstone badges must require a positive category score")
	}
	return nil
}
