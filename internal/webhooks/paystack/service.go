package paystackwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JhnOkall/avenuefashion-backend/internal/cart"
	"github.com/JhnOkall/avenuefashion-backend/internal/orders"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/metrics"
	"github.com/JhnOkall/avenuefashion-backend/pkg/paystack"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	eventChargeSuccess = "charge.success"
	eventChargeFailed  = "charge.failed"
)

// gateway is the Paystack surface reconciliation needs.
type gateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
	ValidSignature(body []byte, signature string) bool
}

// Event is the webhook envelope Paystack posts. Data carries the charge
// with our order reference in its reference field.
type Event struct {
	Event string               `json:"event"`
	Data  paystack.Transaction `json:"data"`
}

type ServiceParams struct {
	Orders  orders.Service
	Cart    cart.Service
	Gateway gateway
	Guard   *IdempotencyGuard
	Log     *logger.Logger
	Metrics *metrics.Registry
}

// Service reconciles gateway payment outcomes onto orders. Every inbound
// signal is re-verified against the gateway before any state changes; the
// webhook payload itself is never trusted.
type Service struct {
	orders  orders.Service
	cart    cart.Service
	gateway gateway
	guard   *IdempotencyGuard
	log     *logger.Logger
	metrics *metrics.Registry
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paystack client required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Metrics == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "metrics registry required")
	}
	return &Service{
		orders:  params.Orders,
		cart:    params.Cart,
		gateway: params.Gateway,
		guard:   params.Guard,
		log:     params.Log,
		metrics: params.Metrics,
	}, nil
}

// HandleWebhook processes one raw webhook delivery.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.ValidSignature(body, signature) {
		s.metrics.WebhookInvalidSig.Inc()
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload")
	}
	if event.Data.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook reference missing")
	}

	switch event.Event {
	case eventChargeSuccess, eventChargeFailed:
	default:
		// Unknown events are acknowledged so Paystack stops retrying.
		return nil
	}

	eventID := fmt.Sprintf("%s:%s", event.Event, event.Data.Reference)
	duplicate, err := s.guard.CheckAndMark(ctx, eventID)
	if err != nil {
		// Redis being down must not drop payments; the database check
		// in the orders service still dedupes.
		s.log.Error(ctx, "idempotency guard unavailable", err)
	} else if duplicate {
		s.metrics.WebhookDuplicates.Inc()
		return nil
	}

	ctx = s.log.WithOrderID(ctx, event.Data.Reference)
	if err := s.apply(ctx, event.Event, event.Data.Reference); err != nil {
		// Release the mark so the gateway's retry can reprocess.
		if delErr := s.guard.Delete(ctx, eventID); delErr != nil {
			s.log.Error(ctx, "release idempotency mark", delErr)
		}
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, eventName, reference string) error {
	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return err
	}

	switch {
	case eventName == eventChargeSuccess && tx.Status == paystack.TransactionStatusSuccess:
		return s.applySuccess(ctx, tx)
	case eventName == eventChargeFailed || tx.Status == paystack.TransactionStatusFailed:
		_, err := s.orders.MarkPaymentFailed(ctx, reference, "payment failed at gateway")
		if err != nil {
			s.metrics.PaymentsReconciled.WithLabelValues("error").Inc()
			return err
		}
		s.metrics.PaymentsReconciled.WithLabelValues("failed").Inc()
		s.log.Info(ctx, "payment failure recorded")
		return nil
	default:
		// A success event whose verify does not confirm success is left
		// pending for the next delivery or the client poll.
		s.log.Warn(ctx, "webhook status not confirmed by verify, skipping")
		return nil
	}
}

func (s *Service) applySuccess(ctx context.Context, tx *paystack.Transaction) error {
	order, err := s.orders.GetByRef(ctx, tx.Reference)
	if err != nil {
		return err
	}
	if mismatch := amountMismatch(order, tx); mismatch != nil {
		s.metrics.PaymentsReconciled.WithLabelValues("mismatch").Inc()
		return mismatch
	}

	updated, applied, err := s.orders.MarkPaid(ctx, tx.Reference, paidAt(tx))
	if err != nil {
		s.metrics.PaymentsReconciled.WithLabelValues("error").Inc()
		return err
	}
	if !applied {
		s.metrics.WebhookDuplicates.Inc()
		return nil
	}

	// The cart survives placement and is cleared exactly once, on the
	// first confirmed payment.
	if err := s.cart.Clear(ctx, updated.UserID); err != nil {
		s.log.Error(ctx, "clear cart after payment", err)
	}
	s.metrics.PaymentsReconciled.WithLabelValues("completed").Inc()
	s.log.Info(ctx, "payment reconciled")
	return nil
}

// Reconcile is the client-poll fallback for delayed webhooks: it verifies
// the charge directly with the gateway and applies the same transition the
// webhook would have.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID, orderRef string) (*models.Order, error) {
	order, err := s.orders.GetForUser(ctx, userID, orderRef)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return order, nil
	}

	tx, err := s.gateway.VerifyTransaction(ctx, orderRef)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			// No charge initiated yet; nothing to reconcile.
			return order, nil
		}
		return nil, err
	}

	switch tx.Status {
	case paystack.TransactionStatusSuccess:
		if mismatch := amountMismatch(order, tx); mismatch != nil {
			s.metrics.PaymentsReconciled.WithLabelValues("mismatch").Inc()
			return nil, mismatch
		}
		if err := s.applySuccess(ctx, tx); err != nil {
			return nil, err
		}
	case paystack.TransactionStatusFailed:
		if _, err := s.orders.MarkPaymentFailed(ctx, orderRef, "payment failed at gateway"); err != nil {
			return nil, err
		}
		s.metrics.PaymentsReconciled.WithLabelValues("failed").Inc()
	}

	return s.orders.GetForUser(ctx, userID, orderRef)
}

func amountMismatch(order *models.Order, tx *paystack.Transaction) error {
	expected := order.Total.Mul(decimal.NewFromInt(100)).IntPart()
	if tx.AmountMinor != expected || (tx.Currency != "" && tx.Currency != order.Currency) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "gateway amount does not match order total").
			WithDetails(map[string]any{
				"expected_minor": expected,
				"received_minor": tx.AmountMinor,
				"currency":       tx.Currency,
			})
	}
	return nil
}

func paidAt(tx *paystack.Transaction) time.Time {
	if ts, err := time.Parse(time.RFC3339, tx.PaidAt); err == nil {
		return ts
	}
	return time.Now().UTC()
}
