package order

import (
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/paymentmethod"
	"github.com/shopspring/decimal"
)

// Order represents a service order in the system.
type Order struct {
	ID             int64                       `json:"id"`
	OrderNumber    string                      `json:"orderNumber"`
	ClientID       int64                       `json:"clientId"`
	VehicleID      int64                       `json:"vehicleId"`
	CenterID       int64                       `json:"centerId"`
	TechnicianID   *int64                      `json:"technicianId,omitempty"`
	AttendantID    *int64                      `json:"attendantId,omitempty"`
	StatusID       int64                       `json:"statusId"`
	Status         orderstatus.Status          `json:"status"`
	PaymentMethod  paymentmethod.PaymentMethod `json:"paymentMethod"`
	ScheduledAt    time.Time                   `json:"scheduledAt"`
	StartedAt      *time.Time                  `json:"startedAt,omitempty"`
	CompletedAt    *time.Time                  `json:"completedAt,omitempty"`
	Mileage        *int64                      `json:"mileage,omitempty"`
	TotalAmount    decimal.Decimal             `json:"totalAmount"`
	DiscountAmount decimal.Decimal             `json:"discountAmount"`
	FinalAmount    decimal.Decimal             `json:"finalAmount"`
	Notes          string                      `json:"notes"`
	Active         bool                        `json:"active"`
	DeletedAt      *time.Time                  `json:"deletedAt,omitempty"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
	OrderItems     []orderitem.OrderItem       `json:"orderItems"`
}

// Snapshot is the subset of order fields that derived caches are keyed by.
type Snapshot struct {
	ID          int64
	ClientID    int64
	CenterID    int64
	ScheduledAt time.Time
}

// Snapshot returns the cache-relevant identity of the order.
func (o Order) Snapshot() Snapshot {
	return Snapshot{
		ID:          o.ID,
		ClientID:    o.ClientID,
		CenterID:    o.CenterID,
		ScheduledAt: o.ScheduledAt,
	}
}
