package enums

import "fmt"

// TimelineStage is the stable key joining recorded timeline events to the
// fixed fulfillment template. Events are matched by stage key, never by
// display title.
type TimelineStage string

const (
	TimelineStageOrderPlaced      TimelineStage = "order_placed"
	TimelineStagePaymentConfirmed TimelineStage = "payment_confirmed"
	TimelineStageProcessing       TimelineStage = "processing"
	TimelineStageInTransit        TimelineStage = "in_transit"
	TimelineStageDelivered        TimelineStage = "delivered"
	TimelineStageCancelled        TimelineStage = "cancelled"
	TimelineStageNote             TimelineStage = "note"
)

var validTimelineStages = []TimelineStage{
	TimelineStageOrderPlaced,
	TimelineStagePaymentConfirmed,
	TimelineStageProcessing,
	TimelineStageInTransit,
	TimelineStageDelivered,
	TimelineStageCancelled,
	TimelineStageNote,
}

// String implements fmt.Stringer.
func (t TimelineStage) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TimelineStage.
func (t TimelineStage) IsValid() bool {
	for _, candidate := range validTimelineStages {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTimelineStage converts raw input into a TimelineStage.
func ParseTimelineStage(value string) (TimelineStage, error) {
	for _, candidate := range validTimelineStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeline stage %q", value)
}

// StageForOrderStatus maps a fulfillment status to the timeline stage that
// should be recorded when the order reaches it.
func StageForOrderStatus(status OrderStatus) (TimelineStage, bool) {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed:
		return TimelineStageOrderPlaced, true
	case OrderStatusProcessing:
		return TimelineStageProcessing, true
	case OrderStatusInTransit:
		return TimelineStageInTransit, true
	case OrderStatusDelivered:
		return TimelineStageDelivered, true
	case OrderStatusCancelled:
		return TimelineStageCancelled, true
	default:
		return "", false
	}
}
