package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the order-pipeline counters exported on /metrics.
type Registry struct {
	OrdersPlaced       prometheus.Counter
	PaymentsReconciled *prometheus.CounterVec
	WebhookDuplicates  prometheus.Counter
	WebhookInvalidSig  prometheus.Counter
	PlacementFailures  *prometheus.CounterVec
}

// New registers the counters with the supplied registerer.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		OrdersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "avenue",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders successfully placed.",
		}),
		PaymentsReconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avenue",
			Subsystem: "payments",
			Name:      "reconciled_total",
			Help:      "Payment confirmations applied, labeled by outcome.",
		}, []string{"outcome"}),
		WebhookDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "avenue",
			Subsystem: "payments",
			Name:      "webhook_duplicates_total",
			Help:      "Webhook deliveries dropped by the idempotency guard.",
		}),
		WebhookInvalidSig: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "avenue",
			Subsystem: "payments",
			Name:      "webhook_invalid_signature_total",
			Help:      "Webhook deliveries rejected for a bad signature.",
		}),
		PlacementFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avenue",
			Subsystem: "orders",
			Name:      "placement_failures_total",
			Help:      "Order placements rejected, labeled by error code.",
		}, []string{"code"}),
	}
}
