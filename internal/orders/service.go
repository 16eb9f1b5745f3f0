package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JhnOkall/avenuefashion-backend/internal/addresses"
	"github.com/JhnOkall/avenuefashion-backend/internal/cart"
	"github.com/JhnOkall/avenuefashion-backend/internal/catalog"
	"github.com/JhnOkall/avenuefashion-backend/internal/locations"
	"github.com/JhnOkall/avenuefashion-backend/internal/pricing"
	"github.com/JhnOkall/avenuefashion-backend/internal/vouchers"
	"github.com/JhnOkall/avenuefashion-backend/pkg/config"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/metrics"
	"github.com/JhnOkall/avenuefashion-backend/pkg/pagination"
	"github.com/JhnOkall/avenuefashion-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns order placement and the full order lifecycle. Placement
// freezes a pricing snapshot that is never recomputed; status changes are
// recorded as append-only timeline events.
type Service interface {
	Place(ctx context.Context, userID uuid.UUID, input PlaceInput) (*models.Order, error)
	GetForUser(ctx context.Context, userID uuid.UUID, orderRef string) (*models.Order, error)
	GetByRef(ctx context.Context, orderRef string) (*models.Order, error)
	TimelineForUser(ctx context.Context, userID uuid.UUID, orderRef string) (*TimelineView, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*Page, error)
	ListAll(ctx context.Context, input ListInput) (*Page, error)
	AdvanceStatus(ctx context.Context, orderRef string, next enums.OrderStatus, note string) (*models.Order, error)
	Cancel(ctx context.Context, orderRef, reason string) (*models.Order, error)
	AppendNote(ctx context.Context, orderRef, title, description string) error
	MarkPaid(ctx context.Context, orderRef string, paidAt time.Time) (*models.Order, bool, error)
	MarkPaymentFailed(ctx context.Context, orderRef, reason string) (*models.Order, error)
}

// Deps bundles everything the orders service touches.
type Deps struct {
	Repo       Repository
	Cart       cart.Service
	Catalog    catalog.Repository
	Addresses  addresses.Service
	Locations  locations.Service
	Vouchers   vouchers.Service
	Calculator *pricing.Calculator
	Tx         txRunner
	Checkout   config.CheckoutConfig
	Log        *logger.Logger
	Metrics    *metrics.Registry
}

type service struct {
	Deps
	now func() time.Time
}

// NewService builds an orders service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case deps.Addresses == nil:
		return nil, fmt.Errorf("addresses service required")
	case deps.Locations == nil:
		return nil, fmt.Errorf("locations service required")
	case deps.Vouchers == nil:
		return nil, fmt.Errorf("vouchers service required")
	case deps.Calculator == nil:
		return nil, fmt.Errorf("pricing calculator required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Log == nil:
		return nil, fmt.Errorf("logger required")
	case deps.Metrics == nil:
		return nil, fmt.Errorf("metrics registry required")
	}
	return &service{Deps: deps, now: time.Now}, nil
}

func (s *service) Place(ctx context.Context, userID uuid.UUID, input PlaceInput) (*models.Order, error) {
	order, err := s.place(ctx, userID, input)
	if err != nil {
		s.Metrics.PlacementFailures.WithLabelValues(failureLabel(err)).Inc()
		return nil, err
	}
	s.Metrics.OrdersPlaced.Inc()
	ctx = s.Log.WithOrderID(ctx, order.OrderID)
	s.Log.Info(ctx, "order placed")
	return order, nil
}

func (s *service) place(ctx context.Context, userID uuid.UUID, input PlaceInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	address, err := s.resolveAddress(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	city, err := s.Locations.CityByID(ctx, address.CityID)
	if err != nil {
		return nil, err
	}

	// The cart is re-read server side; client totals are never trusted.
	userCart, err := s.Cart.GetForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	var voucher *pricing.VoucherTerms
	if input.VoucherCode != nil && strings.TrimSpace(*input.VoucherCode) != "" {
		voucher, err = s.Vouchers.Validate(ctx, *input.VoucherCode)
		if err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		OrderID:       s.newOrderRef(),
		UserID:        userID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      s.Checkout.Currency,
		ShippingDetails: types.ShippingDetails{
			Name:    address.RecipientName,
			Email:   input.ContactEmail,
			Phone:   address.Phone,
			Address: address.StreetAddress,
			City:    city.Name,
		},
	}
	if address.County != nil {
		order.ShippingDetails.County = address.County.Name
	}
	if address.Country != nil {
		order.ShippingDetails.Country = address.Country.Name
	}

	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.Catalog.WithTx(tx)

		// Re-validate price and stock against the catalog; the cart's
		// snapshots may be stale.
		lines, pricedItems, err := s.revalidateLines(ctx, catalogRepo, userCart.Items)
		if err != nil {
			return err
		}

		quote := s.Calculator.Quote(lines, city.DeliveryFee, voucher)
		order.Subtotal = quote.Subtotal
		order.ShippingFee = quote.ShippingFee
		order.Tax = quote.Tax
		order.Discount = quote.Discount
		order.Total = quote.Total
		if voucher != nil {
			order.VoucherCode = &voucher.Code
		}
		order.Items = pricedItems
		order.Timeline = []models.OrderTimelineEvent{{
			Stage:       enums.TimelineStageOrderPlaced,
			Title:       "Order Placed",
			Description: "We have received your order and are awaiting payment.",
		}}

		if err := s.Repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// resolveAddress returns an existing owned address or creates a new one
// from the submitted fields.
func (s *service) resolveAddress(ctx context.Context, userID uuid.UUID, input PlaceInput) (*models.Address, error) {
	switch {
	case input.AddressID != nil && input.NewAddress != nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provide either an address id or a new address, not both")
	case input.AddressID != nil:
		return s.Addresses.GetForUser(ctx, *input.AddressID, userID)
	case input.NewAddress != nil:
		created, err := s.Addresses.Create(ctx, userID, *input.NewAddress)
		if err != nil {
			return nil, err
		}
		// Re-read so the location names are loaded for the snapshot.
		return s.Addresses.GetForUser(ctx, created.ID, userID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
}

// revalidateLines re-reads every cart line from the catalog and rebuilds
// the priced order items. Out-of-stock lines are collected so the client
// sees every offender at once, not just the first.
func (s *service) revalidateLines(ctx context.Context, catalogRepo catalog.Repository, items []models.CartItem) ([]pricing.LineItem, []models.OrderItem, error) {
	var (
		lines      []pricing.LineItem
		orderItems []models.OrderItem
		loadErr    error
		offenders  []map[string]any
	)

	for i := range items {
		line := &items[i]

		product, err := catalogRepo.FindProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				offenders = append(offenders, map[string]any{
					"product_id": line.ProductID,
					"name":       line.Name,
					"reason":     "unavailable",
				})
				continue
			}
			loadErr = multierr.Append(loadErr, fmt.Errorf("load product %s: %w", line.ProductID, err))
			continue
		}

		var variant *models.ProductVariant
		if line.VariantID != nil {
			variant, err = catalogRepo.FindVariant(ctx, *line.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					offenders = append(offenders, map[string]any{
						"product_id": line.ProductID,
						"name":       line.Name,
						"reason":     "unavailable",
					})
					continue
				}
				loadErr = multierr.Append(loadErr, fmt.Errorf("load variant %s: %w", *line.VariantID, err))
				continue
			}
		}

		if !product.Active {
			offenders = append(offenders, map[string]any{
				"product_id": line.ProductID,
				"name":       line.Name,
				"reason":     "unavailable",
			})
			continue
		}
		if stock := catalog.EffectiveStock(product, variant); line.Quantity > stock {
			offenders = append(offenders, map[string]any{
				"product_id": line.ProductID,
				"name":       line.Name,
				"reason":     "out_of_stock",
				"available":  stock,
				"requested":  line.Quantity,
			})
			continue
		}

		price := catalog.EffectivePrice(product, variant)
		lines = append(lines, pricing.LineItem{UnitPrice: price, Quantity: line.Quantity})
		orderItems = append(orderItems, models.OrderItem{
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			Name:           product.Name,
			ImageURL:       product.ImageURL,
			UnitPrice:      price,
			Quantity:       line.Quantity,
			VariantOptions: line.VariantOptions,
		})
	}

	if loadErr != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, loadErr, "revalidate cart")
	}
	if len(offenders) > 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "some items are no longer available").
			WithDetails(map[string]any{"items": offenders})
	}
	return lines, orderItems, nil
}

// newOrderRef generates the human-readable order identity, e.g. AF-9F2C41D8.
func (s *service) newOrderRef() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// Fall back to a time-derived suffix; uniqueness is still
		// enforced by the database index.
		return fmt.Sprintf("%s-%X", s.Checkout.OrderIDPrefix, s.now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("%s-%s", s.Checkout.OrderIDPrefix, strings.ToUpper(hex.EncodeToString(buf)))
}

func (s *service) GetForUser(ctx context.Context, userID uuid.UUID, orderRef string) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.findByRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

// GetByRef loads an order without an ownership check. Used by payment
// reconciliation and admin surfaces.
func (s *service) GetByRef(ctx context.Context, orderRef string) (*models.Order, error) {
	return s.findByRef(ctx, orderRef)
}

func (s *service) TimelineForUser(ctx context.Context, userID uuid.UUID, orderRef string) (*TimelineView, error) {
	order, err := s.GetForUser(ctx, userID, orderRef)
	if err != nil {
		return nil, err
	}
	view := ProjectTimeline(order)
	return &view, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*Page, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.Repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return newPage(rows, limit), nil
}

func (s *service) ListAll(ctx context.Context, input ListInput) (*Page, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	cursor, err := pagination.ParseCursor(input.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Page.Limit)
	rows, err := s.Repo.List(ctx, input.Status, cursor, pagination.LimitWithBuffer(input.Page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return newPage(rows, limit), nil
}

// statusRank orders the forward fulfillment path. Transitions may only
// move forward; cancellation is handled separately.
var statusRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:    0,
	enums.OrderStatusConfirmed:  1,
	enums.OrderStatusProcessing: 2,
	enums.OrderStatusInTransit:  3,
	enums.OrderStatusDelivered:  4,
}

func (s *service) AdvanceStatus(ctx context.Context, orderRef string, next enums.OrderStatus, note string) (*models.Order, error) {
	if !next.IsValid() || next == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var updated *models.Order
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := s.lockByRef(ctx, repo, orderRef)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state").
				WithDetails(map[string]any{"status": order.Status})
		}
		if statusRank[next] <= statusRank[order.Status] {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status can only move forward").
				WithDetails(map[string]any{"from": order.Status, "to": next})
		}

		order.Status = next
		if next == enums.OrderStatusDelivered {
			now := s.now()
			order.DeliveredAt = &now
			// Pay-on-delivery settles when the courier hands over.
			if order.PaymentMethod == enums.PaymentMethodPayOnDelivery && order.PaymentStatus != enums.PaymentStatusCompleted {
				order.PaymentStatus = enums.PaymentStatusCompleted
				order.PaidAt = &now
			}
		}
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		if stage, ok := enums.StageForOrderStatus(next); ok && stage != enums.TimelineStageOrderPlaced {
			if err := s.appendStageOnce(ctx, repo, order.ID, stage, note); err != nil {
				return err
			}
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctx = s.Log.WithOrderID(ctx, orderRef)
	s.Log.Info(ctx, "order status advanced")
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, orderRef, reason string) (*models.Order, error) {
	var updated *models.Order
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := s.lockByRef(ctx, repo, orderRef)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled {
			updated = order
			return nil
		}
		if order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders cannot be cancelled")
		}

		now := s.now()
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if err := s.appendStageOnce(ctx, repo, order.ID, enums.TimelineStageCancelled, reason); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctx = s.Log.WithOrderID(ctx, orderRef)
	s.Log.Info(ctx, "order cancelled")
	return updated, nil
}

func (s *service) AppendNote(ctx context.Context, orderRef, title, description string) error {
	if strings.TrimSpace(title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "note title is required")
	}
	order, err := s.findByRef(ctx, orderRef)
	if err != nil {
		return err
	}
	event := &models.OrderTimelineEvent{
		OrderID:     order.ID,
		Stage:       enums.TimelineStageNote,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
	if err := s.Repo.AppendEvent(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append timeline note")
	}
	return nil
}

// MarkPaid records a confirmed payment, stamping paidAt onto the order.
// The second return reports whether this call applied the transition;
// false means the payment was already recorded and nothing changed,
// including the original paid-at time.
func (s *service) MarkPaid(ctx context.Context, orderRef string, paidAt time.Time) (*models.Order, bool, error) {
	var (
		updated *models.Order
		applied bool
	)
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := s.lockByRef(ctx, repo, orderRef)
		if err != nil {
			return err
		}
		if order.PaymentStatus == enums.PaymentStatusCompleted {
			updated = order
			return nil
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot record payment on a cancelled order")
		}

		order.PaymentStatus = enums.PaymentStatusCompleted
		order.PaidAt = &paidAt
		if order.Status == enums.OrderStatusPending {
			order.Status = enums.OrderStatusConfirmed
		}
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		if err := s.appendStageOnce(ctx, repo, order.ID, enums.TimelineStagePaymentConfirmed, ""); err != nil {
			return err
		}
		updated = order
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return updated, applied, nil
}

func (s *service) MarkPaymentFailed(ctx context.Context, orderRef, reason string) (*models.Order, error) {
	var updated *models.Order
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := s.lockByRef(ctx, repo, orderRef)
		if err != nil {
			return err
		}
		// A completed payment is never demoted by a late failure event.
		if order.PaymentStatus == enums.PaymentStatusCompleted {
			updated = order
			return nil
		}
		if order.PaymentStatus == enums.PaymentStatusFailed {
			updated = order
			return nil
		}

		order.PaymentStatus = enums.PaymentStatusFailed
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment failure")
		}
		event := &models.OrderTimelineEvent{
			OrderID:     order.ID,
			Stage:       enums.TimelineStageNote,
			Title:       "Payment Failed",
			Description: reason,
		}
		if err := repo.AppendEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append payment failure note")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// appendStageOnce appends a stage event unless one is already recorded,
// keeping the timeline idempotent under webhook retries.
func (s *service) appendStageOnce(ctx context.Context, repo Repository, orderID uuid.UUID, stage enums.TimelineStage, description string) error {
	exists, err := repo.HasEvent(ctx, orderID, stage)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check timeline event")
	}
	if exists {
		return nil
	}
	event := &models.OrderTimelineEvent{
		OrderID:     orderID,
		Stage:       stage,
		Title:       stageTitle(stage),
		Description: description,
	}
	if err := repo.AppendEvent(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append timeline event")
	}
	return nil
}

func stageTitle(stage enums.TimelineStage) string {
	for _, tmpl := range fulfillmentTemplate {
		if tmpl.Stage == stage {
			return tmpl.Title
		}
	}
	if stage == enums.TimelineStageCancelled {
		return "Cancelled"
	}
	return "Update"
}

func (s *service) findByRef(ctx context.Context, orderRef string) (*models.Order, error) {
	if strings.TrimSpace(orderRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.Repo.FindByOrderID(ctx, orderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) lockByRef(ctx context.Context, repo Repository, orderRef string) (*models.Order, error) {
	if strings.TrimSpace(orderRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindByOrderIDForUpdate(ctx, orderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func failureLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
