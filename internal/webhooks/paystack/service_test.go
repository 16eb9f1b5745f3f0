package paystackwebhook

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/JhnOkall/avenuefashion-backend/internal/cart"
	"github.com/JhnOkall/avenuefashion-backend/internal/orders"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/metrics"
	"github.com/JhnOkall/avenuefashion-backend/pkg/pagination"
	"github.com/JhnOkall/avenuefashion-backend/pkg/paystack"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type stubOrders struct {
	order          *models.Order
	markPaidCalls  int
	markFailCalls  int
	markPaidErr    error
	alreadyApplied bool
}

func (s *stubOrders) Place(ctx context.Context, userID uuid.UUID, input orders.PlaceInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) GetForUser(ctx context.Context, userID uuid.UUID, orderRef string) (*models.Order, error) {
	if s.order == nil || s.order.OrderID != orderRef {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if s.order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return s.order, nil
}

func (s *stubOrders) GetByRef(ctx context.Context, orderRef string) (*models.Order, error) {
	if s.order == nil || s.order.OrderID != orderRef {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubOrders) TimelineForUser(ctx context.Context, userID uuid.UUID, orderRef string) (*orders.TimelineView, error) {
	return nil, nil
}

func (s *stubOrders) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*orders.Page, error) {
	return nil, nil
}

func (s *stubOrders) ListAll(ctx context.Context, input orders.ListInput) (*orders.Page, error) {
	return nil, nil
}

func (s *stubOrders) AdvanceStatus(ctx context.Context, orderRef string, next enums.OrderStatus, note string) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) Cancel(ctx context.Context, orderRef, reason string) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) AppendNote(ctx context.Context, orderRef, title, description string) error {
	return nil
}

func (s *stubOrders) MarkPaid(ctx context.Context, orderRef string, paidAt time.Time) (*models.Order, bool, error) {
	if s.markPaidErr != nil {
		return nil, false, s.markPaidErr
	}
	s.markPaidCalls++
	if s.alreadyApplied {
		return s.order, false, nil
	}
	s.order.PaymentStatus = enums.PaymentStatusCompleted
	s.order.Status = enums.OrderStatusConfirmed
	return s.order, true, nil
}

func (s *stubOrders) MarkPaymentFailed(ctx context.Context, orderRef, reason string) (*models.Order, error) {
	s.markFailCalls++
	s.order.PaymentStatus = enums.PaymentStatusFailed
	return s.order, nil
}

type stubCart struct {
	clearCalls int
}

func (s *stubCart) GetForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return nil, nil
}

func (s *stubCart) AddItem(ctx context.Context, userID uuid.UUID, input cart.AddItemInput) (*models.Cart, error) {
	return nil, nil
}

func (s *stubCart) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	return nil, nil
}

func (s *stubCart) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	return nil, nil
}

func (s *stubCart) Clear(ctx context.Context, userID uuid.UUID) error {
	s.clearCalls++
	return nil
}

type stubGateway struct {
	validSig    bool
	tx          *paystack.Transaction
	verifyErr   error
	verifyCalls int
}

func (s *stubGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error) {
	s.verifyCalls++
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.tx, nil
}

func (s *stubGateway) ValidSignature(body []byte, signature string) bool {
	return s.validSig
}

type memIdempotencyStore struct {
	keys map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: map[string]bool{}}
}

func (m *memIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("af:idempotency:%s:%s", scope, id)
}

func (m *memIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type webhookFixture struct {
	svc     *Service
	orders  *stubOrders
	cart    *stubCart
	gateway *stubGateway
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		OrderID:       "AF-9F2C41D8",
		UserID:        uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      "KES",
		Total:         decimal.RequireFromString("1360.00"),
	}
	ordersSvc := &stubOrders{order: order}
	cartSvc := &stubCart{}
	gatewayStub := &stubGateway{
		validSig: true,
		tx: &paystack.Transaction{
			Reference:   order.OrderID,
			Status:      paystack.TransactionStatusSuccess,
			AmountMinor: 136000,
			Currency:    "KES",
			PaidAt:      "2026-04-01T09:30:00Z",
		},
	}
	guard, err := NewIdempotencyGuard(newMemIdempotencyStore(), time.Hour, "paystack")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Orders:  ordersSvc,
		Cart:    cartSvc,
		Gateway: gatewayStub,
		Guard:   guard,
		Log:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Metrics: metrics.New(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &webhookFixture{svc: svc, orders: ordersSvc, cart: cartSvc, gateway: gatewayStub}
}

func successBody(ref string) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"status":"success","amount":136000,"currency":"KES"}}`, ref))
}

func TestHandleWebhookAppliesPaymentOnce(t *testing.T) {
	f := newWebhookFixture(t)
	body := successBody(f.orders.order.OrderID)

	if err := f.svc.HandleWebhook(context.Background(), body, "sig"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.orders.markPaidCalls != 1 {
		t.Fatalf("expected one MarkPaid call, got %d", f.orders.markPaidCalls)
	}
	if f.cart.clearCalls != 1 {
		t.Fatalf("expected cart cleared once, got %d", f.cart.clearCalls)
	}

	// Redelivery of the same event is absorbed by the guard.
	if err := f.svc.HandleWebhook(context.Background(), body, "sig"); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if f.orders.markPaidCalls != 1 {
		t.Fatalf("duplicate reached the orders service: %d calls", f.orders.markPaidCalls)
	}
	if f.cart.clearCalls != 1 {
		t.Fatalf("cart cleared more than once: %d", f.cart.clearCalls)
	}
}

func TestHandleWebhookRejectsInvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)
	f.gateway.validSig = false

	err := f.svc.HandleWebhook(context.Background(), successBody(f.orders.order.OrderID), "bad")
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if f.orders.markPaidCalls != 0 {
		t.Fatal("payment applied despite bad signature")
	}
}

func TestHandleWebhookDatabaseDedupeAfterGuardExpiry(t *testing.T) {
	f := newWebhookFixture(t)
	f.orders.alreadyApplied = true

	// Fresh guard key (as if the redis entry expired) but the order is
	// already completed; the orders service reports a no-op.
	if err := f.svc.HandleWebhook(context.Background(), successBody(f.orders.order.OrderID), "sig"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.cart.clearCalls != 0 {
		t.Fatal("cart cleared on a duplicate")
	}
}

func TestHandleWebhookAmountMismatch(t *testing.T) {
	f := newWebhookFixture(t)
	f.gateway.tx.AmountMinor = 100

	err := f.svc.HandleWebhook(context.Background(), successBody(f.orders.order.OrderID), "sig")
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if f.orders.markPaidCalls != 0 {
		t.Fatal("payment applied despite amount mismatch")
	}
}

func TestHandleWebhookChargeFailed(t *testing.T) {
	f := newWebhookFixture(t)
	f.gateway.tx.Status = paystack.TransactionStatusFailed
	body := []byte(fmt.Sprintf(`{"event":"charge.failed","data":{"reference":%q,"status":"failed"}}`, f.orders.order.OrderID))

	if err := f.svc.HandleWebhook(context.Background(), body, "sig"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.orders.markFailCalls != 1 {
		t.Fatalf("expected one failure record, got %d", f.orders.markFailCalls)
	}
	if f.orders.markPaidCalls != 0 {
		t.Fatal("failed charge must not mark paid")
	}
}

func TestHandleWebhookIgnoresUnknownEvents(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"event":"transfer.success","data":{"reference":"AF-9F2C41D8"}}`)

	if err := f.svc.HandleWebhook(context.Background(), body, "sig"); err != nil {
		t.Fatalf("unknown event must be acknowledged: %v", err)
	}
	if f.gateway.verifyCalls != 0 {
		t.Fatal("unknown event should not reach the gateway")
	}
}

func TestHandleWebhookReleasesGuardOnError(t *testing.T) {
	f := newWebhookFixture(t)
	f.gateway.verifyErr = pkgerrors.New(pkgerrors.CodeDependency, "gateway down")
	body := successBody(f.orders.order.OrderID)

	if err := f.svc.HandleWebhook(context.Background(), body, "sig"); err == nil {
		t.Fatal("expected verify failure to surface")
	}

	// Retry after the gateway recovers must be able to process.
	f.gateway.verifyErr = nil
	if err := f.svc.HandleWebhook(context.Background(), body, "sig"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if f.orders.markPaidCalls != 1 {
		t.Fatalf("expected retry to apply payment, got %d calls", f.orders.markPaidCalls)
	}
}

func TestReconcileAppliesDelayedPayment(t *testing.T) {
	f := newWebhookFixture(t)

	updated, err := f.svc.Reconcile(context.Background(), f.orders.order.UserID, f.orders.order.OrderID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if updated.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("payment status = %s", updated.PaymentStatus)
	}
	if f.cart.clearCalls != 1 {
		t.Fatalf("expected cart cleared once, got %d", f.cart.clearCalls)
	}
}

func TestReconcileNoopWhenAlreadySettled(t *testing.T) {
	f := newWebhookFixture(t)
	f.orders.order.PaymentStatus = enums.PaymentStatusCompleted

	if _, err := f.svc.Reconcile(context.Background(), f.orders.order.UserID, f.orders.order.OrderID); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if f.gateway.verifyCalls != 0 {
		t.Fatal("settled order must not hit the gateway")
	}
}

func TestReconcileWithoutChargeLeavesPending(t *testing.T) {
	f := newWebhookFixture(t)
	f.gateway.verifyErr = pkgerrors.New(pkgerrors.CodeNotFound, "transaction reference unknown to gateway")

	order, err := f.svc.Reconcile(context.Background(), f.orders.order.UserID, f.orders.order.OrderID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
}
