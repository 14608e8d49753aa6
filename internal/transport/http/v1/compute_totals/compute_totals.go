package computetotals

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	ComputeTotals(ctx context.Context, orderID int64) (order.Order, error)
}

// ComputeTotals handles POST /orders/{id}/totals.
func ComputeTotals(w http.ResponseWriter, r *http.Request, service service) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := service.ComputeTotals(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}
