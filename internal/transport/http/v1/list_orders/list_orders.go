package listorders

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	ListOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
}

func parseFilter(r *http.Request) (order.QueryOrdersModel, error) {
	var (
		filter order.QueryOrdersModel
		err    error
	)
	query := r.URL.Query()

	if filter.Ids, err = respond.Int64List(r, "ids"); err != nil {
		return filter, err
	}
	if filter.ClientIds, err = respond.Int64List(r, "client_ids"); err != nil {
		return filter, err
	}
	if filter.CenterIds, err = respond.Int64List(r, "center_ids"); err != nil {
		return filter, err
	}
	if filter.StatusIds, err = respond.Int64List(r, "status_ids"); err != nil {
		return filter, err
	}

	for name, dst := range map[string]**time.Time{
		"scheduled_from": &filter.ScheduledFrom,
		"scheduled_to":   &filter.ScheduledTo,
	} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperrors.Validation("%s must be an RFC 3339 timestamp", name)
		}
		*dst = &t
	}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, apperrors.Validation("%s must be an integer", name)
		}
		*dst = v
	}

	filter.IncludeDeleted = query.Get("include_deleted") == "true"

	return filter, nil
}

// ListOrders handles GET /orders.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	orders, err := service.ListOrders(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusOK, orders)
}
