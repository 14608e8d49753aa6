package changestatus

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	ChangeStatus(ctx context.Context, cmd ordersvc.ChangeStatusCommand) (order.Order, error)
}

type changeStatusRequest struct {
	StatusID int64  `json:"status_id" validate:"gt=0"`
	Notes    string `json:"notes"     validate:"max=2000"`
}

// ChangeStatus handles PATCH /orders/{id}/status.
func ChangeStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	req := changeStatusRequest{}
	if !respond.Decode(w, r, &req) {
		return
	}

	changed, err := service.ChangeStatus(r.Context(), ordersvc.ChangeStatusCommand{
		OrderID:  id,
		StatusID: req.StatusID,
		Notes:    req.Notes,
	})
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusOK, changed)
}
