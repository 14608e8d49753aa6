package totals

import (
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits amounts are rounded to.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// MaxAmount is the largest value a NUMERIC(12,2) amount column stores.
var MaxAmount = decimal.New(1, 10).Sub(decimal.New(1, -Scale))

// Totals holds the order-level amounts.
type Totals struct {
	Total    decimal.Decimal `json:"total"`
	Discount decimal.Decimal `json:"discount"`
	Final    decimal.Decimal `json:"final"`
}

// LineTotal returns quantity * unitPrice * (1 - discountPercent/100), rounded to Scale.
func LineTotal(quantity int, unitPrice, discountPercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPercent.Div(hundred))
	total := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Mul(factor).Round(Scale)
	if total.IsNegative() {
		return decimal.Zero
	}

	return total
}

// Compute sums the stored item totals and applies the order-level discount.
// Final never goes below zero.
func Compute(items []orderitem.OrderItem, orderDiscount decimal.Decimal) Totals {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}

	final := total.Sub(orderDiscount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Totals{
		Total:    total,
		Discount: orderDiscount,
		Final:    final,
	}
}

// Reprice recomputes TotalPrice on the item in place.
func Reprice(item *orderitem.OrderItem) {
	item.TotalPrice = LineTotal(item.Quantity, item.UnitPrice, item.DiscountPercent)
}

// FitsScale reports whether d has at most Scale fractional digits.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(Scale))
}

// WithinBounds reports whether every order amount fits its column.
func (t Totals) WithinBounds() bool {
	return !t.Total.GreaterThan(MaxAmount) && !t.Discount.GreaterThan(MaxAmount) && !t.Final.GreaterThan(MaxAmount)
}
