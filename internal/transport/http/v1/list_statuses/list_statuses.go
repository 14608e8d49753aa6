package liststatuses

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/workflow"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	ListStatuses(ctx context.Context) ([]orderstatus.OrderStatus, error)
}

type statusResponse struct {
	orderstatus.OrderStatus
	Next     []orderstatus.Status `json:"next"`
	Terminal bool                 `json:"terminal"`
}

// ListStatuses handles GET /statuses. Each status carries the statuses it can move to.
func ListStatuses(w http.ResponseWriter, r *http.Request, service service) {
	statuses, err := service.ListStatuses(r.Context())
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	resp := make([]statusResponse, len(statuses))
	for i, s := range statuses {
		next := workflow.Allowed(s.Name)
		if next == nil {
			next = []orderstatus.Status{}
		}
		resp[i] = statusResponse{
			OrderStatus: s,
			Next:        next,
			Terminal:    workflow.Terminal(s.Name),
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}
