package enums

import "fmt"

// TimelineEventStatus marks how a timeline entry renders to the customer.
type TimelineEventStatus string

const (
	TimelineEventStatusCompleted TimelineEventStatus = "completed"
	TimelineEventStatusCurrent   TimelineEventStatus = "current"
	TimelineEventStatusUpcoming  TimelineEventStatus = "upcoming"
)

var validTimelineEventStatuses = []TimelineEventStatus{
	TimelineEventStatusCompleted,
	TimelineEventStatusCurrent,
	TimelineEventStatusUpcoming,
}

// String implements fmt.Stringer.
func (t TimelineEventStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TimelineEventStatus.
func (t TimelineEventStatus) IsValid() bool {
	for _, candidate := range validTimelineEventStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTimelineEventStatus converts raw input into a TimelineEventStatus.
func ParseTimelineEventStatus(value string) (TimelineEventStatus, error) {
	for _, candidate := range validTimelineEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeline event status %q", value)
}
