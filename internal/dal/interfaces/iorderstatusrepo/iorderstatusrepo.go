package iorderstatusrepo

import (
	"context"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
)

// IOrderStatusRepository reads the status catalogue.
type IOrderStatusRepository interface {
	List(ctx context.Context) ([]orderstatus.OrderStatus, error)
	GetByID(ctx context.Context, id int64) (orderstatus.OrderStatus, error)
	GetByName(ctx context.Context, name orderstatus.Status) (orderstatus.OrderStatus, error)
}
