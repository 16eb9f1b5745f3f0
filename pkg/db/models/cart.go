package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single active cart per user. Cleared only on confirmed
// payment or an explicit clear, never at order placement.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
