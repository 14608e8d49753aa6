package centerdashboard

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/dashboard"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	Dashboard(ctx context.Context, centerID int64) (dashboard.Dashboard, error)
}

// CenterDashboard handles GET /centers/{id}/dashboard.
func CenterDashboard(w http.ResponseWriter, r *http.Request, service service) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	write(w, r, service, id)
}

// Dashboard handles GET /dashboard, covering every center.
func Dashboard(w http.ResponseWriter, r *http.Request, service service) {
	write(w, r, service, 0)
}

func write(w http.ResponseWriter, r *http.Request, service service, centerID int64) {
	d, err := service.Dashboard(r.Context(), centerID)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusOK, d)
}
