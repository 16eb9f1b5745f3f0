package orders

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/JhnOkall/avenuefashion-backend/internal/addresses"
	"github.com/JhnOkall/avenuefashion-backend/internal/cart"
	"github.com/JhnOkall/avenuefashion-backend/internal/catalog"
	"github.com/JhnOkall/avenuefashion-backend/internal/pricing"
	"github.com/JhnOkall/avenuefashion-backend/internal/vouchers"
	"github.com/JhnOkall/avenuefashion-backend/pkg/config"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/metrics"
	"github.com/JhnOkall/avenuefashion-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memOrdersRepo struct {
	byRef  map[string]*models.Order
	events map[uuid.UUID][]models.OrderTimelineEvent
}

func newMemOrdersRepo() *memOrdersRepo {
	return &memOrdersRepo{
		byRef:  map[string]*models.Order{},
		events: map[uuid.UUID][]models.OrderTimelineEvent{},
	}
}

func (m *memOrdersRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now().UTC()
	for i := range order.Timeline {
		order.Timeline[i].OrderID = order.ID
		order.Timeline[i].CreatedAt = time.Now().UTC()
	}
	m.events[order.ID] = append(m.events[order.ID], order.Timeline...)
	clone := *order
	m.byRef[order.OrderID] = &clone
	return nil
}

func (m *memOrdersRepo) FindByOrderID(ctx context.Context, orderRef string) (*models.Order, error) {
	if order, ok := m.byRef[orderRef]; ok {
		clone := *order
		clone.Timeline = append([]models.OrderTimelineEvent(nil), m.events[order.ID]...)
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOrdersRepo) FindByOrderIDForUpdate(ctx context.Context, orderRef string) (*models.Order, error) {
	if order, ok := m.byRef[orderRef]; ok {
		clone := *order
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range m.byRef {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memOrdersRepo) List(ctx context.Context, status *enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range m.byRef {
		if status == nil || order.Status == *status {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memOrdersRepo) Update(ctx context.Context, order *models.Order) error {
	clone := *order
	clone.Timeline = nil
	m.byRef[order.OrderID] = &clone
	return nil
}

func (m *memOrdersRepo) AppendEvent(ctx context.Context, event *models.OrderTimelineEvent) error {
	event.CreatedAt = time.Now().UTC()
	m.events[event.OrderID] = append(m.events[event.OrderID], *event)
	return nil
}

func (m *memOrdersRepo) HasEvent(ctx context.Context, orderID uuid.UUID, stage enums.TimelineStage) (bool, error) {
	for _, event := range m.events[orderID] {
		if event.Stage == stage {
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrdersRepo) eventCount(orderID uuid.UUID, stage enums.TimelineStage) int {
	count := 0
	for _, event := range m.events[orderID] {
		if event.Stage == stage {
			count++
		}
	}
	return count
}

type stubCatalog struct {
	products map[uuid.UUID]*models.Product
	variants map[uuid.UUID]*models.ProductVariant
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		products: map[uuid.UUID]*models.Product{},
		variants: map[uuid.UUID]*models.ProductVariant{},
	}
}

func (s *stubCatalog) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalog) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalog) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	if v, ok := s.variants[id]; ok {
		clone := *v
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalog) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	return nil, nil
}

func (s *stubCatalog) addProduct(name, price string, stock int) *models.Product {
	p := &models.Product{
		ID:     uuid.New(),
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
	s.products[p.ID] = p
	return p
}

type stubCartService struct {
	cart *models.Cart
}

func (s *stubCartService) GetForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.cart, nil
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cart.AddItemInput) (*models.Cart, error) {
	return s.cart, nil
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	return s.cart, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	return s.cart, nil
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cart.Items = nil
	return nil
}

type stubAddresses struct {
	address *models.Address
}

func (s *stubAddresses) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	return []models.Address{*s.address}, nil
}

func (s *stubAddresses) GetForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {
	if s.address.ID != addressID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	if s.address.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to user")
	}
	return s.address, nil
}

func (s *stubAddresses) Create(ctx context.Context, userID uuid.UUID, input addresses.CreateInput) (*models.Address, error) {
	s.address = &models.Address{
		ID:            uuid.New(),
		UserID:        userID,
		RecipientName: input.RecipientName,
		Phone:         input.Phone,
		StreetAddress: input.StreetAddress,
		CityID:        input.CityID,
	}
	return s.address, nil
}

func (s *stubAddresses) Update(ctx context.Context, addressID, userID uuid.UUID, input addresses.UpdateInput) (*models.Address, error) {
	return s.address, nil
}

func (s *stubAddresses) Delete(ctx context.Context, addressID, userID uuid.UUID) error {
	return nil
}

type stubLocations struct {
	city *models.City
}

func (s *stubLocations) Countries(ctx context.Context) ([]models.Country, error) { return nil, nil }

func (s *stubLocations) Counties(ctx context.Context, countryID uuid.UUID) ([]models.County, error) {
	return nil, nil
}

func (s *stubLocations) Cities(ctx context.Context, countyID uuid.UUID) ([]models.City, error) {
	return nil, nil
}

func (s *stubLocations) CityByID(ctx context.Context, cityID uuid.UUID) (*models.City, error) {
	if s.city == nil || s.city.ID != cityID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "city not found")
	}
	return s.city, nil
}

type stubVouchers struct {
	terms map[string]*pricing.VoucherTerms
	err   error
}

func (s *stubVouchers) Validate(ctx context.Context, code string) (*pricing.VoucherTerms, error) {
	if s.err != nil {
		return nil, s.err
	}
	if terms, ok := s.terms[vouchers.NormalizeCode(code)]; ok {
		return terms, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
}

func (s *stubVouchers) Create(ctx context.Context, input vouchers.CreateInput) (*models.Voucher, error) {
	return nil, nil
}

func (s *stubVouchers) Update(ctx context.Context, id uuid.UUID, input vouchers.UpdateInput) (*models.Voucher, error) {
	return nil, nil
}

func (s *stubVouchers) List(ctx context.Context) ([]models.Voucher, error) { return nil, nil }

type fixture struct {
	svc     Service
	repo    *memOrdersRepo
	catalog *stubCatalog
	cart    *stubCartService
	addrs   *stubAddresses
	city    *models.City
	userID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userID := uuid.New()
	city := &models.City{
		ID:          uuid.New(),
		Name:        "Nairobi",
		DeliveryFee: decimal.RequireFromString("200.00"),
	}
	address := &models.Address{
		ID:            uuid.New(),
		UserID:        userID,
		RecipientName: "Jane Wanjiku",
		Phone:         "+254700111222",
		StreetAddress: "Moi Avenue 12",
		CityID:        city.ID,
	}
	repo := newMemOrdersRepo()
	catalogRepo := newStubCatalog()
	cartSvc := &stubCartService{cart: &models.Cart{ID: uuid.New(), UserID: userID}}

	checkout := config.CheckoutConfig{TaxRate: "0.16", Currency: "KES", OrderIDPrefix: "AF"}
	calc, err := pricing.NewCalculator(checkout)
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}

	svc, err := NewService(Deps{
		Repo:       repo,
		Cart:       cartSvc,
		Catalog:    catalogRepo,
		Addresses:  &stubAddresses{address: address},
		Locations:  &stubLocations{city: city},
		Vouchers: &stubVouchers{terms: map[string]*pricing.VoucherTerms{
			"SAVE10": {Code: "SAVE10", Type: enums.VoucherTypePercentage, Value: decimal.NewFromInt(10)},
		}},
		Calculator: calc,
		Tx:         passthroughTx{},
		Checkout:   checkout,
		Log:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Metrics:    metrics.New(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{
		svc:     svc,
		repo:    repo,
		catalog: catalogRepo,
		cart:    cartSvc,
		addrs:   &stubAddresses{address: address},
		city:    city,
		userID:  userID,
	}
}

func (f *fixture) addCartLine(product *models.Product, quantity int) {
	f.cart.cart.Items = append(f.cart.cart.Items, models.CartItem{
		ID:        uuid.New(),
		CartID:    f.cart.cart.ID,
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
	})
}

func (f *fixture) addressID() *uuid.UUID {
	id := f.addrs.address.ID
	return &id
}

func TestPlaceFreezesPricingSnapshot(t *testing.T) {
	f := newFixture(t)
	product := f.catalog.addProduct("Linen Shirt", "500.00", 10)
	f.addCartLine(product, 2)

	order, err := f.svc.Place(context.Background(), f.userID, PlaceInput{
		AddressID:     f.addressID(),
		PaymentMethod: enums.PaymentMethodPaystack,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if !order.Subtotal.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("subtotal = %s", order.Subtotal)
	}
	if !order.ShippingFee.Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("shipping = %s", order.ShippingFee)
	}
	if !order.Tax.Equal(decimal.RequireFromString("160.00")) {
		t.Fatalf("tax = %s", order.Tax)
	}
	if !order.Total.Equal(decimal.RequireFromString("1360.00")) {
		t.Fatalf("total = %s", order.Total)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
	if !strings.HasPrefix(order.OrderID, "AF-") {
		t.Fatalf("order ref %q missing prefix", order.OrderID)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatal("expected one snapshot line with quantity 2")
	}
	if f.repo.eventCount(order.ID, enums.TimelineStageOrderPlaced) != 1 {
		t.Fatal("expected a single order_placed event")
	}
	if order.ShippingDetails.Name != "Jane Wanjiku" || order.ShippingDetails.City != "Nairobi" {
		t.Fatalf("unexpected shipping snapshot %+v", order.ShippingDetails)
	}
}

func TestPlaceAppliesVoucherDiscount(t *testing.T) {
	f := newFixture(t)
	product := f.catalog.addProduct("Linen Shirt", "500.00", 10)
	f.addCartLine(product, 2)

	code := "save10"
	order, err := f.svc.Place(context.Background(), f.userID, PlaceInput{
		AddressID:     f.addressID(),
		PaymentMethod: enums.PaymentMethodPaystack,
		VoucherCode:   &code,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !order.Discount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("discount = %s", order.Discount)
	}
	if !order.Total.Equal(decimal.RequireFromString("1260.00")) {
		t.Fatalf("total = %s", order.Total)
	}
	if order.VoucherCode == nil || *order.VoucherCode != "SAVE10" {
		t.Fatal("expected voucher code frozen onto order")
	}
}

func TestPlaceRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Place(context.Background(), f.userID, PlaceInput{
		AddressID:     f.addressID(),
		PaymentMethod: enums.PaymentMethodPaystack,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestPlaceCollectsAllStockOffenders(t *testing.T) {
	f := newFixture(t)
	short := f.catalog.addProduct("Linen Shirt", "500.00", 1)
	gone := f.catalog.addProduct("Denim Jacket", "2500.00", 0)
	fine := f.catalog.addProduct("Wool Scarf", "800.00", 10)
	f.addCartLine(short, 3)
	f.addCartLine(gone, 1)
	f.addCartLine(fine, 1)

	_, err := f.svc.Place(context.Background(), f.userID, PlaceInput{
		AddressID:     f.addressID(),
		PaymentMethod: enums.PaymentMethodPaystack,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	items, ok := details["items"].([]map[string]any)
	if !ok {
		t.Fatalf("expected offender list, got %T", details["items"])
	}
	if len(items) != 2 {
		t.Fatalf("expected both offenders reported, got %d", len(items))
	}
}

func TestPlacePropagatesVoucherErrors(t *testing.T) {
	f := newFixture(t)
	product := f.catalog.addProduct("Linen Shirt", "500.00", 10)
	f.addCartLine(product, 1)

	code := "NOPE"
	_, err := f.svc.Place(context.Background(), f.userID, PlaceInput{
		AddressID:     f.addressID(),
		PaymentMethod: enums.PaymentMethodPaystack,
		VoucherCode:   &code,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPlaceRequiresAddress(t *testing.T) {
	f := newFixture(t)
	product := f.catalog.addProduct("Linen Shirt", "500.00", 10)
	f.addCartLine(product, 1)

	_, err := f.svc.Place(context.Background(), f.userID, PlaceInput{
		PaymentMethod: enums.PaymentMethodPaystack,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func placeTestOrder(t *testing.T, f *fixture) *models.Order {
	t.Helper()
	product := f.catalog.addProduct("Linen Shirt", "500.00", 10)
	f.addCartLine(product, 2)
	order, err := f.svc.Place(context.Background(), f.userID, PlaceInput{
		AddressID:     f.addressID(),
		PaymentMethod: enums.PaymentMethodPaystack,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	return order
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	f := newFixture(t)
	order := placeTestOrder(t, f)
	ctx := context.Background()
	paidAt := time.Now().UTC()

	first, applied, err := f.svc.MarkPaid(ctx, order.OrderID, paidAt)
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if !applied {
		t.Fatal("expected first call to apply")
	}
	if first.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("payment status = %s", first.PaymentStatus)
	}
	if first.Status != enums.OrderStatusConfirmed {
		t.Fatalf("order status = %s", first.Status)
	}
	if first.PaidAt == nil || !first.PaidAt.Equal(paidAt) {
		t.Fatal("expected the gateway payment time recorded on the order")
	}

	replay, applied, err := f.svc.MarkPaid(ctx, order.OrderID, paidAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if applied {
		t.Fatal("expected duplicate to be a no-op")
	}
	if replay.PaidAt == nil || !replay.PaidAt.Equal(paidAt) {
		t.Fatal("expected replay to keep the original payment time")
	}
	if f.repo.eventCount(order.ID, enums.TimelineStagePaymentConfirmed) != 1 {
		t.Fatal("expected exactly one payment_confirmed event")
	}
}

func TestMarkPaymentFailedNeverDemotesCompleted(t *testing.T) {
	f := newFixture(t)
	order := placeTestOrder(t, f)
	ctx := context.Background()

	if _, _, err := f.svc.MarkPaid(ctx, order.OrderID, time.Now().UTC()); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	updated, err := f.svc.MarkPaymentFailed(ctx, order.OrderID, "late failure event")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if updated.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("completed payment was demoted to %s", updated.PaymentStatus)
	}
}

func TestAdvanceStatusForwardOnly(t *testing.T) {
	f := newFixture(t)
	order := placeTestOrder(t, f)
	ctx := context.Background()

	if _, err := f.svc.AdvanceStatus(ctx, order.OrderID, enums.OrderStatusProcessing, ""); err != nil {
		t.Fatalf("advance: %v", err)
	}
	_, err := f.svc.AdvanceStatus(ctx, order.OrderID, enums.OrderStatusConfirmed, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on backward move, got %v", err)
	}
	_, err = f.svc.AdvanceStatus(ctx, order.OrderID, enums.OrderStatusCancelled, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for cancel via advance, got %v", err)
	}
}

func TestAdvanceToDeliveredSettlesPayOnDelivery(t *testing.T) {
	f := newFixture(t)
	product := f.catalog.addProduct("Linen Shirt", "500.00", 10)
	f.addCartLine(product, 1)
	order, err := f.svc.Place(context.Background(), f.userID, PlaceInput{
		AddressID:     f.addressID(),
		PaymentMethod: enums.PaymentMethodPayOnDelivery,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	ctx := context.Background()

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
	} {
		if _, err := f.svc.AdvanceStatus(ctx, order.OrderID, status, ""); err != nil {
			t.Fatalf("advance to %s: %v", status, err)
		}
	}

	final, err := f.svc.GetForUser(ctx, f.userID, order.OrderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("expected payment settled on delivery, got %s", final.PaymentStatus)
	}
	if final.DeliveredAt == nil {
		t.Fatal("expected delivered timestamp")
	}
	if final.PaidAt == nil {
		t.Fatal("expected payment timestamp stamped at handover")
	}
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	order := placeTestOrder(t, f)
	ctx := context.Background()

	cancelled, err := f.svc.Cancel(ctx, order.OrderID, "customer request")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Fatal("expected cancelled timestamp")
	}
	if f.repo.eventCount(order.ID, enums.TimelineStageCancelled) != 1 {
		t.Fatal("expected one cancelled event")
	}

	// Cancelling again is a no-op, not an error.
	if _, err := f.svc.Cancel(ctx, order.OrderID, "again"); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if f.repo.eventCount(order.ID, enums.TimelineStageCancelled) != 1 {
		t.Fatal("repeat cancel must not append another event")
	}

	_, err = f.svc.AdvanceStatus(ctx, order.OrderID, enums.OrderStatusProcessing, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected terminal state conflict, got %v", err)
	}
}

func TestGetForUserEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	order := placeTestOrder(t, f)

	_, err := f.svc.GetForUser(context.Background(), uuid.New(), order.OrderID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	_, err = f.svc.GetForUser(context.Background(), f.userID, "AF-MISSING")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
