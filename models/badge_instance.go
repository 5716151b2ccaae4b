package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeInstance: one user's earned copy of one badge. The unique index on
// UserBadgeKey guarantees at most one instance per (user, badge) pair and is
// what makes awards idempotent under races.
type BadgeInstance struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	BadgeID      string    `gorm:"index;not null" json:"badge_id"`
	UserBadgeKey string    `gorm:"uniqueIndex;not null" json:"-"` // user + "." + badge
	Assertion    string    `gorm:"type:text" json:"assertion"`
	Hash         string    `json:"hash"`
	IssuedOn     time.Time `gorm:"autoCreateTime" json:"issued_on"`
	Seen         bool      `gorm:"default:false;index" json:"seen"`
}

func (i *BadgeInstance) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.UserBadgeKey == "" {
		i.UserBadgeKey = UserBadgeKey(i.UserID, i.BadgeID)
	}
	return nil
}

// UserBadgeKey derives the uniqueness key for a (user, badge) pair.
func UserBadgeKey(userID, badgeID string) string {
	return userID + "." + badgeID
}
