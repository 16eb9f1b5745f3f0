package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a saved shipping destination. At most one address per user may
// carry IsDefault=true; the addresses service enforces this inside a single
// transaction on every mutation.
type Address struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	RecipientName string    `gorm:"column:recipient_name;not null"`
	Phone         string    `gorm:"column:phone;not null"`
	StreetAddress string    `gorm:"column:street_address;not null"`
	CountryID     uuid.UUID `gorm:"column:country_id;type:uuid;not null"`
	CountyID      uuid.UUID `gorm:"column:county_id;type:uuid;not null"`
	CityID        uuid.UUID `gorm:"column:city_id;type:uuid;not null"`
	IsDefault     bool      `gorm:"column:is_default;not null;default:false"`
	City          *City     `gorm:"foreignKey:CityID"`
	County        *County   `gorm:"foreignKey:CountyID"`
	Country       *Country  `gorm:"foreignKey:CountryID"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
