package orders

import (
	"time"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
)

// templateStage is one entry of the fixed fulfillment template shown to
// every customer. Recorded events join the template by stage key, never by
// display title, so titles can be reworded without breaking history.
type templateStage struct {
	Stage enums.TimelineStage
	Title string
}

var fulfillmentTemplate = []templateStage{
	{Stage: enums.TimelineStageOrderPlaced, Title: "Order Placed"},
	{Stage: enums.TimelineStagePaymentConfirmed, Title: "Payment Confirmed"},
	{Stage: enums.TimelineStageProcessing, Title: "Processing"},
	{Stage: enums.TimelineStageInTransit, Title: "In Transit"},
	{Stage: enums.TimelineStageDelivered, Title: "Delivered"},
}

// StageView is one rendered timeline entry.
type StageView struct {
	Stage       enums.TimelineStage       `json:"stage"`
	Title       string                    `json:"title"`
	Description string                    `json:"description,omitempty"`
	Status      enums.TimelineEventStatus `json:"status"`
	OccurredAt  *time.Time                `json:"occurred_at,omitempty"`
}

// NoteView is a free-form admin note attached to the order.
type NoteView struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// TimelineView is the customer-facing projection of an order's history.
type TimelineView struct {
	Stages []StageView `json:"stages"`
	Notes  []NoteView  `json:"notes,omitempty"`
}

// ProjectTimeline renders the recorded events of an order against the
// fixed fulfillment template.
//
// Stages with a recorded event render as completed, except the most recent
// one which renders as current; template stages not yet reached render as
// upcoming. Unrecorded stages before the current one render as completed,
// never upcoming. A cancelled order renders its recorded stages followed by
// a terminal cancelled entry, with no upcoming tail.
func ProjectTimeline(order *models.Order) TimelineView {
	recorded := map[enums.TimelineStage]*models.OrderTimelineEvent{}
	var cancelled *models.OrderTimelineEvent
	var notes []NoteView

	for i := range order.Timeline {
		event := &order.Timeline[i]
		switch event.Stage {
		case enums.TimelineStageNote:
			notes = append(notes, NoteView{
				Title:       event.Title,
				Description: event.Description,
				OccurredAt:  event.CreatedAt,
			})
		case enums.TimelineStageCancelled:
			cancelled = event
		default:
			// First occurrence wins; the log is append-only so the
			// earliest event is the authoritative one.
			if _, ok := recorded[event.Stage]; !ok {
				recorded[event.Stage] = event
			}
		}
	}

	var stages []StageView
	lastRecorded := -1
	for i, tmpl := range fulfillmentTemplate {
		if _, ok := recorded[tmpl.Stage]; ok {
			lastRecorded = i
		}
	}

	for i, tmpl := range fulfillmentTemplate {
		event, ok := recorded[tmpl.Stage]
		if !ok {
			if cancelled != nil {
				continue
			}
			// A stage with no recorded event that sits before the current
			// one was skipped, not pending: pay-on-delivery never records
			// payment_confirmed, and a forward status jump skips stages.
			// Render it completed so nothing before current reads upcoming.
			status := enums.TimelineEventStatusUpcoming
			if i < lastRecorded {
				status = enums.TimelineEventStatusCompleted
			}
			stages = append(stages, StageView{
				Stage:  tmpl.Stage,
				Title:  tmpl.Title,
				Status: status,
			})
			continue
		}

		status := enums.TimelineEventStatusCompleted
		if cancelled == nil && i == lastRecorded && tmpl.Stage != enums.TimelineStageDelivered {
			status = enums.TimelineEventStatusCurrent
		}
		occurred := event.CreatedAt
		stages = append(stages, StageView{
			Stage:       tmpl.Stage,
			Title:       tmpl.Title,
			Description: event.Description,
			Status:      status,
			OccurredAt:  &occurred,
		})
	}

	if cancelled != nil {
		occurred := cancelled.CreatedAt
		stages = append(stages, StageView{
			Stage:       enums.TimelineStageCancelled,
			Title:       "Cancelled",
			Description: cancelled.Description,
			Status:      enums.TimelineEventStatusCompleted,
			OccurredAt:  &occurred,
		})
	}

	return TimelineView{Stages: stages, Notes: notes}
}
