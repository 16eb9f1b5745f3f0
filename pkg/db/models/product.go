package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. The order core only reads products to
// revalidate price and stock at placement time.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int              `gorm:"column:stock;not null;default:0"`
	ImageURL    *string          `gorm:"column:image_url"`
	Images      pq.StringArray   `gorm:"column:images;type:text[]"`
	Active      bool             `gorm:"column:active;not null;default:true"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
