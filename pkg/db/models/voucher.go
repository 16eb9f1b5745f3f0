package models

import (
	"time"

	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Voucher is a global discount code. Codes are stored upper-cased and
// matched case-normalized. Redemptions are not counted; a voucher stays
// valid until it expires or is deactivated.
type Voucher struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string            `gorm:"column:code;not null;uniqueIndex"`
	DiscountType  enums.VoucherType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue decimal.Decimal   `gorm:"column:discount_value;type:numeric(12,2);not null"`
	ExpiresAt     *time.Time        `gorm:"column:expires_at"`
	Active        bool              `gorm:"column:active;not null;default:true"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
