package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credit tracks one user's tally for one behavior (denormalized for cheap
// earnability checks)
type Credit struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_credits_user_behavior;not null" json:"user_id"`
	Behavior  string    `gorm:"uniqueIndex:idx_credits_user_behavior;not null" json:"behavior"`
	Count     int64     `gorm:"default:0" json:"count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Credit) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
