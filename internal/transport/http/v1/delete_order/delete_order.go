package deleteorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	DeleteOrder(ctx context.Context, orderID int64) error
}

// DeleteOrder handles DELETE /orders/{id}. The order is soft-deleted.
func DeleteOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	if err := service.DeleteOrder(r.Context(), id); err != nil {
		respond.Error(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
