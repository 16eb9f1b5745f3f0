package models

import (
	"time"

	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	"github.com/JhnOkall/avenuefashion-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the immutable record of a placement. The pricing snapshot is
// computed once and never recomputed; OrderID is the human-readable
// identity shared with the payment gateway as its correlation reference.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         string                `gorm:"column:order_id;not null;uniqueIndex"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus   enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Currency        string                `gorm:"column:currency;type:text;not null;default:'KES'"`
	Subtotal        decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingFee     decimal.Decimal       `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	Tax             decimal.Decimal       `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Discount        decimal.Decimal       `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	VoucherCode     *string               `gorm:"column:voucher_code"`
	ShippingDetails types.ShippingDetails `gorm:"column:shipping_details;type:jsonb;serializer:json"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Timeline        []OrderTimelineEvent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt          *time.Time            `gorm:"column:paid_at"`
	CancelledAt     *time.Time            `gorm:"column:cancelled_at"`
	DeliveredAt     *time.Time            `gorm:"column:delivered_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
