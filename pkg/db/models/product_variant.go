package models

import (
	"time"

	"github.com/JhnOkall/avenuefashion-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a sellable variation of a product (size, color). A nil
// Price means the variant sells at the parent product's price.
type ProductVariant struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	Options   types.VariantOptions `gorm:"column:options;type:jsonb;serializer:json"`
	Price     *decimal.Decimal     `gorm:"column:price;type:numeric(12,2)"`
	Stock     int                  `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
