package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Country is the root of the delivery location hierarchy.
type Country struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	Counties  []County  `gorm:"foreignKey:CountryID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// County groups cities under a country.
type County struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CountryID uuid.UUID `gorm:"column:country_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Cities    []City    `gorm:"foreignKey:CountyID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// City carries the delivery fee applied by the pricing calculator.
type City struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CountyID    uuid.UUID       `gorm:"column:county_id;type:uuid;not null;index"`
	Name        string          `gorm:"column:name;not null"`
	DeliveryFee decimal.Decimal `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
