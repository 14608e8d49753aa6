package ordersvc

import (
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/paymentmethod"
	"github.com/corray333/backend-labs/serviceorder/internal/service/totals"
	"github.com/shopspring/decimal"
)

// CreateOrderCommand describes a new service order. StatusID nil means scheduled.
type CreateOrderCommand struct {
	ClientID      int64
	VehicleID     int64
	CenterID      int64
	TechnicianID  *int64
	AttendantID   *int64
	StatusID      *int64
	PaymentMethod string
	ScheduledAt   time.Time
	Mileage       *int64
	Discount      *decimal.Decimal
	Notes         string
	Items         []orderitem.Descriptor
}

func (c CreateOrderCommand) validate() error {
	if c.ClientID <= 0 {
		return apperrors.Validation("client_id is required")
	}
	if c.VehicleID <= 0 {
		return apperrors.Validation("vehicle_id is required")
	}
	if c.CenterID <= 0 {
		return apperrors.Validation("center_id is required")
	}
	if c.StatusID != nil && *c.StatusID <= 0 {
		return apperrors.Validation("status_id must be positive")
	}
	if _, err := paymentmethod.Parse(c.PaymentMethod); err != nil {
		return apperrors.Validation("payment_method %q is not supported", c.PaymentMethod)
	}
	if err := validateMileage(c.Mileage); err != nil {
		return err
	}

	return validateDiscount(c.Discount)
}

// UpdateOrderCommand changes header fields. Nil fields are left as they are.
type UpdateOrderCommand struct {
	OrderID       int64
	TechnicianID  *int64
	AttendantID   *int64
	PaymentMethod *string
	ScheduledAt   *time.Time
	Mileage       *int64
	Discount      *decimal.Decimal
	Notes         *string
}

func (c UpdateOrderCommand) validate() error {
	if c.OrderID <= 0 {
		return apperrors.Validation("order id is required")
	}
	if c.PaymentMethod != nil {
		if _, err := paymentmethod.Parse(*c.PaymentMethod); err != nil {
			return apperrors.Validation("payment_method %q is not supported", *c.PaymentMethod)
		}
	}
	if c.ScheduledAt != nil && c.ScheduledAt.IsZero() {
		return apperrors.Validation("scheduled_at must be a valid time")
	}
	if err := validateMileage(c.Mileage); err != nil {
		return err
	}

	return validateDiscount(c.Discount)
}

// ChangeStatusCommand moves an order to the status with StatusID.
type ChangeStatusCommand struct {
	OrderID  int64
	StatusID int64
	Notes    string
}

func (c ChangeStatusCommand) validate() error {
	if c.OrderID <= 0 {
		return apperrors.Validation("order id is required")
	}
	if c.StatusID <= 0 {
		return apperrors.Validation("status_id is required")
	}

	return nil
}

// ReconcileItemsCommand replaces, updates or merges an order's line items.
type ReconcileItemsCommand struct {
	OrderID      int64
	Operation    string
	Items        []orderitem.Descriptor
	RemoveUnsent bool
}

func validateMileage(m *int64) error {
	if m != nil && *m < 0 {
		return apperrors.Validation("mileage must not be negative")
	}

	return nil
}

func validateDiscount(d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	if d.IsNegative() || d.GreaterThan(totals.MaxAmount) {
		return apperrors.Validation("discount must be between 0 and %s", totals.MaxAmount)
	}
	if !totals.FitsScale(*d) {
		return apperrors.Validation("discount must have at most %d decimal places", totals.Scale)
	}

	return nil
}
