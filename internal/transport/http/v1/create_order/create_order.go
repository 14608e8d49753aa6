package createorder

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/lineitems"
	"github.com/shopspring/decimal"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, cmd ordersvc.CreateOrderCommand) (order.Order, error)
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	ClientID      int64               `json:"client_id"      validate:"gt=0"`
	VehicleID     int64               `json:"vehicle_id"     validate:"gt=0"`
	CenterID      int64               `json:"center_id"      validate:"gt=0"`
	TechnicianID  *int64              `json:"technician_id"  validate:"omitempty,gt=0"`
	AttendantID   *int64              `json:"attendant_id"   validate:"omitempty,gt=0"`
	StatusID      *int64              `json:"status_id"      validate:"omitempty,gt=0"`
	PaymentMethod string              `json:"payment_method"`
	ScheduledAt   *time.Time          `json:"scheduled_at"`
	Mileage       *int64              `json:"mileage"        validate:"omitempty,gte=0"`
	Discount      *decimal.Decimal    `json:"discount"`
	Notes         string              `json:"notes"          validate:"max=2000"`
	Items         []lineitems.Request `json:"items"          validate:"dive"`
}

// toCommand converts createOrderRequest to the service command.
func (r *createOrderRequest) toCommand() ordersvc.CreateOrderCommand {
	cmd := ordersvc.CreateOrderCommand{
		ClientID:      r.ClientID,
		VehicleID:     r.VehicleID,
		CenterID:      r.CenterID,
		TechnicianID:  r.TechnicianID,
		AttendantID:   r.AttendantID,
		StatusID:      r.StatusID,
		PaymentMethod: r.PaymentMethod,
		Mileage:       r.Mileage,
		Discount:      r.Discount,
		Notes:         r.Notes,
		Items:         lineitems.ToDescriptors(r.Items),
	}
	if r.ScheduledAt != nil {
		cmd.ScheduledAt = *r.ScheduledAt
	}

	return cmd
}

// CreateOrder handles POST /orders.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if !respond.Decode(w, r, &req) {
		return
	}

	created, err := service.CreateOrder(r.Context(), req.toCommand())
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusCreated, created)
}
