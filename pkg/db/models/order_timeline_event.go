package models

import (
	"time"

	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderTimelineEvent is one recorded fulfillment event. Append-only:
// events are added by placement, payment reconciliation and admin actions,
// never edited.
type OrderTimelineEvent struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Stage       enums.TimelineStage `gorm:"column:stage;type:text;not null"`
	Title       string              `gorm:"column:title;not null"`
	Description string              `gorm:"column:description"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
