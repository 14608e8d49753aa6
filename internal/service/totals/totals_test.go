package totals

import (
	"testing"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(qty int, price, discount string) orderitem.OrderItem {
	it := orderitem.OrderItem{Quantity: qty, UnitPrice: dec(price), DiscountPercent: dec(discount)}
	Reprice(&it)

	return it
}

func TestLineTotal(t *testing.T) {
	cases := []struct {
		name     string
		qty      int
		price    string
		discount string
		want     string
	}{
		{name: "no discount", qty: 2, price: "50", discount: "0", want: "100"},
		{name: "ten percent", qty: 1, price: "100", discount: "10", want: "90"},
		{name: "full discount", qty: 3, price: "19.99", discount: "100", want: "0"},
		{name: "rounds to cents", qty: 3, price: "0.335", discount: "0", want: "1.01"},
		{name: "free item", qty: 5, price: "0", discount: "0", want: "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LineTotal(tc.qty, dec(tc.price), dec(tc.discount))
			assert.True(t, dec(tc.want).Equal(got), "want %s got %s", tc.want, got)
		})
	}
}

func TestComputeExampleOrder(t *testing.T) {
	items := []orderitem.OrderItem{
		item(2, "50", "0"),
		item(1, "100", "10"),
	}

	got := Compute(items, dec("20"))

	assert.True(t, dec("190").Equal(got.Total), got.Total.String())
	assert.True(t, dec("20").Equal(got.Discount), got.Discount.String())
	assert.True(t, dec("170").Equal(got.Final), got.Final.String())
}

func TestComputeFinalNeverNegative(t *testing.T) {
	got := Compute([]orderitem.OrderItem{item(1, "10", "0")}, dec("25"))

	assert.True(t, got.Final.IsZero())
	assert.True(t, dec("10").Equal(got.Total))
}

func TestComputeTotalIsSumOfItemTotals(t *testing.T) {
	sets := [][]orderitem.OrderItem{
		nil,
		{item(1, "12.34", "0")},
		{item(4, "7.5", "33"), item(2, "199.99", "5"), item(10, "0.01", "50")},
	}

	for _, items := range sets {
		sum := decimal.Zero
		for _, it := range items {
			sum = sum.Add(it.TotalPrice)
		}

		got := Compute(items, decimal.Zero)
		assert.True(t, sum.Equal(got.Total))
		assert.False(t, got.Final.IsNegative())
	}
}

func TestFitsScale(t *testing.T) {
	assert.True(t, FitsScale(dec("12")))
	assert.True(t, FitsScale(dec("12.30")))
	assert.True(t, FitsScale(dec("0.01")))
	assert.False(t, FitsScale(dec("0.005")))
	assert.False(t, FitsScale(dec("33.333")))
}

func TestWithinBounds(t *testing.T) {
	assert.Equal(t, "9999999999.99", MaxAmount.StringFixed(Scale))

	ok := Compute([]orderitem.OrderItem{item(1, "9999999999.99", "0")}, dec("1"))
	assert.True(t, ok.WithinBounds())

	over := Compute([]orderitem.OrderItem{item(1, "9999999999.99", "0"), item(1, "0.01", "0")}, decimal.Zero)
	assert.False(t, over.WithinBounds())
}
