package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ClaimCode: redeemable token tied to one badge. The unique index on Code is
// the global namespace — a code can live on at most one badge store-wide.
type ClaimCode struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	BadgeID     string    `gorm:"index;not null" json:"badge_id"`
	Code        string    `gorm:"uniqueIndex;not null" json:"code"`
	ClaimedBy   string    `gorm:"index" json:"claimed_by,omitempty"`
	ReservedFor string    `json:"reserved_for,omitempty"`
	Multi       bool      `gorm:"default:false" json:"multi"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *ClaimCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Code = NormalizeCode(c.Code)
	return nil
}

// Claimed reports whether a single-use code has been redeemed. Multi-use
// codes are never claimed; they only remember the most recent claimant.
func (c *ClaimCode) Claimed() bool {
	return !c.Multi && c.ClaimedBy != ""
}

// NormalizeCode canonicalizes user input into stored form:
// trimmed, lowercase, spaces collapsed to hyphens ("My Code" → "my-code").
func NormalizeCode(raw string) string {
	return slug.Make(raw)
}
