package statushistory

import (
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
)

// Entry represents an audit record of a status change.
type Entry struct {
	ID         int64              `json:"id"`
	OrderID    int64              `json:"orderId"`
	FromStatus orderstatus.Status `json:"fromStatus"`
	ToStatus   orderstatus.Status `json:"toStatus"`
	Notes      string             `json:"notes"`
	CreatedAt  time.Time          `json:"createdAt"`
}
