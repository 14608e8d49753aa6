package updateorder

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
	"github.com/shopspring/decimal"
)

// service is an interface for the service layer.
type service interface {
	UpdateOrder(ctx context.Context, cmd ordersvc.UpdateOrderCommand) (order.Order, error)
}

// updateOrderRequest carries the header fields to change. Absent fields are kept.
type updateOrderRequest struct {
	TechnicianID  *int64           `json:"technician_id"  validate:"omitempty,gt=0"`
	AttendantID   *int64           `json:"attendant_id"   validate:"omitempty,gt=0"`
	PaymentMethod *string          `json:"payment_method"`
	ScheduledAt   *time.Time       `json:"scheduled_at"`
	Mileage       *int64           `json:"mileage"        validate:"omitempty,gte=0"`
	Discount      *decimal.Decimal `json:"discount"`
	Notes         *string          `json:"notes"          validate:"omitempty,max=2000"`
}

// UpdateOrder handles PATCH /orders/{id}.
func UpdateOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	req := updateOrderRequest{}
	if !respond.Decode(w, r, &req) {
		return
	}

	updated, err := service.UpdateOrder(r.Context(), ordersvc.UpdateOrderCommand{
		OrderID:       id,
		TechnicianID:  req.TechnicianID,
		AttendantID:   req.AttendantID,
		PaymentMethod: req.PaymentMethod,
		ScheduledAt:   req.ScheduledAt,
		Mileage:       req.Mileage,
		Discount:      req.Discount,
		Notes:         req.Notes,
	})
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusOK, updated)
}
