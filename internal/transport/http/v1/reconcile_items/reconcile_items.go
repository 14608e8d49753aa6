package reconcileitems

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/lineitems"
)

// service is an interface for the service layer.
type service interface {
	ReconcileItems(ctx context.Context, cmd ordersvc.ReconcileItemsCommand) (order.Order, error)
}

// reconcileItemsRequest is the items payload. The operation is checked by the service so an
// unknown mode surfaces as invalid_operation rather than a validation error.
type reconcileItemsRequest struct {
	Operation    string              `json:"operation"     validate:"required"`
	RemoveUnsent bool                `json:"remove_unsent"`
	Data         []lineitems.Request `json:"data"          validate:"dive"`
}

// ReconcileItems handles PUT /orders/{id}/items.
func ReconcileItems(w http.ResponseWriter, r *http.Request, service service) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	req := reconcileItemsRequest{}
	if !respond.Decode(w, r, &req) {
		return
	}

	o, err := service.ReconcileItems(r.Context(), ordersvc.ReconcileItemsCommand{
		OrderID:      id,
		Operation:    req.Operation,
		Items:        lineitems.ToDescriptors(req.Data),
		RemoveUnsent: req.RemoveUnsent,
	})
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}
