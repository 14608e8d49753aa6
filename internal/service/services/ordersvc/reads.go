package ordersvc

import (
	"context"
	"fmt"

	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/corray333/backend-labs/serviceorder/internal/service/cacheinv"
	"github.com/corray333/backend-labs/serviceorder/internal/service/cacheport"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/dashboard"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/statushistory"
	"golang.org/x/sync/errgroup"
)

// GetOrder returns a live order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (o order.Order, err error) {
	ctx, span := startSpan(ctx, "GetOrder")
	defer func() { endSpan(span, err) }()

	if orderID <= 0 {
		return order.Order{}, apperrors.Validation("order id is required")
	}

	return cacheport.RememberJSON(ctx, s.cache, cacheinv.OrderKey(orderID), s.cacheTTL,
		func(ctx context.Context) (order.Order, error) {
			return loadOrder(ctx, s.newUOW(), orderID)
		},
	)
}

// ListOrders returns orders matching filter with their items. Lists scoped to exactly one
// client or one center are cached; anything narrower goes to the database.
func (s *OrderService) ListOrders(ctx context.Context, filter order.QueryOrdersModel) (orders []order.Order, err error) {
	ctx, span := startSpan(ctx, "ListOrders")
	defer func() { endSpan(span, err) }()

	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, apperrors.Validation("limit and offset must not be negative")
	}
	if filter.ScheduledFrom != nil && filter.ScheduledTo != nil && !filter.ScheduledFrom.Before(*filter.ScheduledTo) {
		return nil, apperrors.Validation("scheduled_from must be before scheduled_to")
	}

	load := func(ctx context.Context) ([]order.Order, error) {
		return s.queryOrders(ctx, filter)
	}

	if key, ok := listCacheKey(filter); ok {
		return cacheport.RememberJSON(ctx, s.cache, key, s.cacheTTL, load)
	}

	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}

	return load(ctx)
}

func (s *OrderService) queryOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{OrderIds: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	byOrder := make(map[int64][]orderitem.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].OrderItems = byOrder[orders[i].ID]
		if orders[i].OrderItems == nil {
			orders[i].OrderItems = []orderitem.OrderItem{}
		}
	}

	return orders, nil
}

// listCacheKey reports whether filter is a whole-client or whole-center list.
func listCacheKey(f order.QueryOrdersModel) (string, bool) {
	narrowed := len(f.Ids) > 0 || len(f.StatusIds) > 0 ||
		f.ScheduledFrom != nil || f.ScheduledTo != nil ||
		f.IncludeDeleted || f.Limit > 0 || f.Offset > 0
	if narrowed {
		return "", false
	}

	switch {
	case len(f.ClientIds) == 1 && len(f.CenterIds) == 0:
		return cacheinv.ClientOrdersKey(f.ClientIds[0]), true
	case len(f.CenterIds) == 1 && len(f.ClientIds) == 0:
		return cacheinv.CenterOrdersKey(f.CenterIds[0]), true
	default:
		return "", false
	}
}

// ListStatuses returns the status catalogue.
func (s *OrderService) ListStatuses(ctx context.Context) (statuses []orderstatus.OrderStatus, err error) {
	ctx, span := startSpan(ctx, "ListStatuses")
	defer func() { endSpan(span, err) }()

	return cacheport.RememberJSON(ctx, s.cache, cacheinv.StatusesKey, s.cacheTTL,
		func(ctx context.Context) ([]orderstatus.OrderStatus, error) {
			statuses, err := s.newUOW().OrderStatusRepository().List(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list statuses: %w", err)
			}

			return statuses, nil
		},
	)
}

// Dashboard summarizes the current day, week and month of a center. centerID 0 covers
// every center. Periods are loaded concurrently and cached per bucket.
func (s *OrderService) Dashboard(ctx context.Context, centerID int64) (result dashboard.Dashboard, err error) {
	ctx, span := startSpan(ctx, "Dashboard")
	defer func() { endSpan(span, err) }()

	if centerID < 0 {
		return dashboard.Dashboard{}, apperrors.Validation("center id must not be negative")
	}

	now := s.now()
	scope := cacheinv.CenterScope(centerID)
	summaries := make([]dashboard.Summary, len(dashboard.Periods))

	g, gctx := errgroup.WithContext(ctx)
	for i, period := range dashboard.Periods {
		g.Go(func() error {
			from, to := dashboard.Range(period, now, s.location)
			key := cacheinv.DashboardKey(scope, period, cacheinv.Bucket(period, now, s.location))

			summary, err := cacheport.RememberJSON(gctx, s.cache, key, s.cacheTTL,
				func(ctx context.Context) (dashboard.Summary, error) {
					summary, err := s.newUOW().OrderRepository().Summarize(ctx, centerID, from, to)
					if err != nil {
						return dashboard.Summary{}, fmt.Errorf("failed to summarize %s: %w", period, err)
					}
					summary.Period = period

					return summary, nil
				},
			)
			if err != nil {
				return err
			}
			summaries[i] = summary

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return dashboard.Dashboard{}, err
	}

	return dashboard.Dashboard{CenterID: centerID, Summaries: summaries}, nil
}

// GetHistory returns the status audit trail of an order, oldest first.
func (s *OrderService) GetHistory(ctx context.Context, orderID int64) (entries []statushistory.Entry, err error) {
	ctx, span := startSpan(ctx, "GetHistory")
	defer func() { endSpan(span, err) }()

	if orderID <= 0 {
		return nil, apperrors.Validation("order id is required")
	}

	work := s.newUOW()
	if _, err := work.OrderRepository().GetByID(ctx, orderID); err != nil {
		return nil, mapRepositoryError(err, "order", orderID)
	}

	entries, err = work.StatusHistoryRepository().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of order %d: %w", orderID, err)
	}

	return entries, nil
}
