package models

import (
	"time"

	"github.com/JhnOkall/avenuefashion-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a price-at-purchase snapshot of one cart line.
type OrderItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID           `gorm:"column:variant_id;type:uuid"`
	Name           string               `gorm:"column:name;not null"`
	ImageURL       *string              `gorm:"column:image_url"`
	UnitPrice      decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity       int                  `gorm:"column:quantity;not null"`
	VariantOptions types.VariantOptions `gorm:"column:variant_options;type:jsonb;serializer:json"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}
