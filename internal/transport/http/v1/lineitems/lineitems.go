package lineitems

import (
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// Request is one incoming line item.
type Request struct {
	ID        *int64           `json:"id,omitempty"  validate:"omitempty,gt=0"`
	ProductID int64            `json:"product_id"    validate:"gt=0"`
	Quantity  int              `json:"quantity"      validate:"gte=1"`
	UnitPrice *decimal.Decimal `json:"unit_price"    validate:"required"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
	Notes     string           `json:"notes,omitempty" validate:"max=1000"`
}

// ToDescriptors converts requests to reconciler descriptors.
func ToDescriptors(reqs []Request) []orderitem.Descriptor {
	out := make([]orderitem.Descriptor, len(reqs))
	for i, r := range reqs {
		out[i] = orderitem.Descriptor{
			ID:        r.ID,
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			Discount:  r.Discount,
			Notes:     r.Notes,
		}
	}

	return out
}
