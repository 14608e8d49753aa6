package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/dashboard"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/totals"
)

// IOrderRepository is an interface for service order repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) (int64, error)
	GetByID(ctx context.Context, id int64) (order.Order, error)
	LockForUpdate(ctx context.Context, id int64, timeout time.Duration) (order.Order, error)
	Update(ctx context.Context, o order.Order) error
	UpdateTotals(ctx context.Context, id int64, t totals.Totals, now time.Time) error
	SoftDelete(ctx context.Context, id int64, now time.Time) error
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	Summarize(ctx context.Context, centerID int64, from, to time.Time) (dashboard.Summary, error)
}
