package orderitem

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem represents a product used within a service order.
type OrderItem struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"orderId"`
	ProductID       int64           `json:"productId"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Descriptor is an incoming line-item request. Pointer fields distinguish "absent" from zero.
type Descriptor struct {
	ID        *int64           `json:"id,omitempty"`
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// DiscountOrZero returns the descriptor discount, defaulting to zero.
func (d Descriptor) DiscountOrZero() decimal.Decimal {
	if d.Discount == nil {
		return decimal.Zero
	}

	return *d.Discount
}
