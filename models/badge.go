package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeRole: how a badge participates in category aggregation
type BadgeRole string

const (
	RolePlain       BadgeRole = "plain"       // no category math
	RoleContributor BadgeRole = "contributor" // adds CategoryWeight toward capstones
	RoleCapstone    BadgeRole = "capstone"    // auto-awarded at CategoryRequirement
)

// Badge: static definition (admin-managed)
type Badge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	ShortName   string `gorm:"uniqueIndex;not null" json:"short_name"` // e.g., "link-crew"
	Name        string `gorm:"uniqueIndex;not null" json:"name"`       // "Link Crew"
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text" json:"image_url"`   // R2 URL to SVG/png
	Type        string `gorm:"type:varchar(32)" json:"type"` // e.g., "skill", "participation", "offline"

	// Behaviors: credit thresholds keyed by behavior name,
	// e.g., {"link": 5} or {"comment": 3, "vote": 10}
	Behaviors map[string]int64 `gorm:"serializer:json" json:"behaviors"`

	// Categories this badge is tagged with, e.g., ["science", "math"]
	Categories []string `gorm:"serializer:json" json:"categories"`

	// Category aggregation. A badge is either a capstone (CategoryRequirement)
	// or a contributor (CategoryWeight), never both.
	CategoryAward       string `gorm:"index" json:"category_award,omitempty"`
	CategoryWeight      int64  `json:"category_weight,omitempty"`
	CategoryRequirement int64  `json:"category_requirement,omitempty"`

	ClaimCodes []ClaimCode `gorm:"foreignKey:BadgeID;constraint:OnDelete:CASCADE" json:"claim_codes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Role resolves capstone first, so a badge carrying both fields behaves as a
// capstone and never contributes weight.
func (b *Badge) Role() BadgeRole {
	switch {
	case b.CategoryRequirement > 0:
		return RoleCapstone
	case b.CategoryWeight > 0:
		return RoleContributor
	default:
		return RolePlain
	}
}

func (b *Badge) HasCategory(category string) bool {
	for _, c := range b.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// EarnableBy reports whether every behavior threshold is met by the given
// credit tally. Vacuously true for badges with no behaviors.
func (b *Badge) EarnableBy(tally map[string]int64) bool {
	for behavior, required := range b.Behaviors {
		if tally[behavior] < required {
			return false
		}
	}
	return true
}

// CreditsUntilAward returns the remaining credit gap per unmet behavior;
// satisfied behaviors are omitted.
func (b *Badge) CreditsUntilAward(tally map[string]int64) map[string]int64 {
	gaps := make(map[string]int64)
	for behavior, required := range b.Behaviors {
		if have := tally[behavior]; have < required {
			gaps[behavior] = required - have
		}
	}
	return gaps
}
