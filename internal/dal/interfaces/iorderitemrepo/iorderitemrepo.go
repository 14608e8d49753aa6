package iorderitemrepo

import (
	"context"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/reconciler"
)

// IOrderItemRepository is an interface for order item repository.
type IOrderItemRepository interface {
	reconciler.ItemRepository

	Query(
		ctx context.Context,
		filter *orderitem.QueryOrderItemsModel,
	) ([]orderitem.OrderItem, error)
}
