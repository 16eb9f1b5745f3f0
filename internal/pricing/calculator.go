package pricing

import (
	"fmt"

	"github.com/JhnOkall/avenuefashion-backend/pkg/config"
	"github.com/JhnOkall/avenuefashion-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// moneyPlaces is the rounding precision applied to every computed component.
// Rounding once per component keeps stored and displayed totals identical.
const moneyPlaces = 2

var oneHundred = decimal.NewFromInt(100)

// LineItem is the minimal pricing view of a cart line.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// VoucherTerms is a validated voucher as seen by the calculator. Validation
// (expiry, active flag) happens upstream in the vouchers service.
type VoucherTerms struct {
	Code  string
	Type  enums.VoucherType
	Value decimal.Decimal
}

// Quote is the frozen pricing snapshot persisted onto an order.
type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// Calculator derives order totals. Pure computation, no I/O.
type Calculator struct {
	taxRate decimal.Decimal
}

// NewCalculator builds a calculator from the checkout configuration.
func NewCalculator(cfg config.CheckoutConfig) (*Calculator, error) {
	rate, err := cfg.TaxRateDecimal()
	if err != nil {
		return nil, fmt.Errorf("pricing calculator: %w", err)
	}
	return &Calculator{taxRate: rate}, nil
}

// Quote computes subtotal, tax, discount and the clamped total.
//
//	subtotal = sum(unit price * quantity)
//	tax      = subtotal * taxRate
//	discount = percentage vouchers: subtotal * value / 100; fixed: value
//	total    = max(0, subtotal + shipping + tax - discount)
func (c *Calculator) Quote(items []LineItem, shippingFee decimal.Decimal, voucher *VoucherTerms) Quote {
	subtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(moneyPlaces)

	tax := subtotal.Mul(c.taxRate).Round(moneyPlaces)

	discount := decimal.Zero
	if voucher != nil {
		switch voucher.Type {
		case enums.VoucherTypePercentage:
			discount = subtotal.Mul(voucher.Value).Div(oneHundred).Round(moneyPlaces)
		case enums.VoucherTypeFixed:
			discount = voucher.Value.Round(moneyPlaces)
		}
	}

	shipping := shippingFee.Round(moneyPlaces)

	total := subtotal.Add(shipping).Add(tax).Sub(discount).Round(moneyPlaces)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Tax:         tax,
		Discount:    discount,
		Total:       total,
	}
}

// TotalMinorUnits converts the quote total into the gateway's minor
// currency units (KES cents).
func (q Quote) TotalMinorUnits() int64 {
	return q.Total.Mul(oneHundred).IntPart()
}
