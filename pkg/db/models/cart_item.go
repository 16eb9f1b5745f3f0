package models

import (
	"time"

	"github.com/JhnOkall/avenuefashion-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart. Name, image and unit price are
// denormalized snapshots taken when the line was added; the authoritative
// price is re-read from the catalog at placement time.
type CartItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID            `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID           `gorm:"column:variant_id;type:uuid"`
	Name           string               `gorm:"column:name;not null"`
	ImageURL       *string              `gorm:"column:image_url"`
	UnitPrice      decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity       int                  `gorm:"column:quantity;not null"`
	VariantOptions types.VariantOptions `gorm:"column:variant_options;type:jsonb;serializer:json"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
