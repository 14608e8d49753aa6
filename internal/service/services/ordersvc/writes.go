package ordersvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/event"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/paymentmethod"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/statushistory"
	"github.com/corray333/backend-labs/serviceorder/internal/service/reconciler"
	"github.com/corray333/backend-labs/serviceorder/internal/service/totals"
	"github.com/corray333/backend-labs/serviceorder/internal/service/workflow"
	"github.com/shopspring/decimal"
)

// CreateOrder validates references, numbers the order, stores it with its initial items and
// totals in one transaction, and returns the persisted order.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (created order.Order, err error) {
	ctx, span := startSpan(ctx, "CreateOrder")
	defer func() { endSpan(span, err) }()

	if err := cmd.validate(); err != nil {
		return order.Order{}, err
	}
	if err := reconciler.Validate(cmd.Items); err != nil {
		return order.Order{}, err
	}

	now := s.now()
	scheduledAt := cmd.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = now
	}
	discount := decimal.Zero
	if cmd.Discount != nil {
		discount = *cmd.Discount
	}
	pm, _ := paymentmethod.Parse(cmd.PaymentMethod)

	err = s.inTx(ctx, func(work unitOfWork) error {
		if _, err := work.ClientRepository().GetByID(ctx, cmd.ClientID); err != nil {
			return mapRepositoryError(err, "client", cmd.ClientID)
		}

		v, err := work.VehicleRepository().GetByID(ctx, cmd.VehicleID)
		if err != nil {
			return mapRepositoryError(err, "vehicle", cmd.VehicleID)
		}
		if v.ClientID != cmd.ClientID {
			return apperrors.OwnershipMismatch("vehicle %d does not belong to client %d", cmd.VehicleID, cmd.ClientID)
		}

		status, err := s.resolveStatus(ctx, work, cmd.StatusID)
		if err != nil {
			return err
		}

		if err := ensureProducts(ctx, work, cmd.Items); err != nil {
			return err
		}

		number, err := s.numbers.Generate(ctx, work.SequenceRepository(), now)
		if err != nil {
			return mapRepositoryError(err, "order number sequence", 0)
		}

		o := order.Order{
			OrderNumber:    number,
			ClientID:       cmd.ClientID,
			VehicleID:      cmd.VehicleID,
			CenterID:       cmd.CenterID,
			TechnicianID:   cmd.TechnicianID,
			AttendantID:    cmd.AttendantID,
			PaymentMethod:  pm,
			ScheduledAt:    scheduledAt,
			Mileage:        cmd.Mileage,
			TotalAmount:    decimal.Zero,
			DiscountAmount: discount,
			FinalAmount:    decimal.Zero,
			Notes:          cmd.Notes,
			Active:         true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		o, err = workflow.Enter(o, status.Name, status.ID, now)
		if err != nil {
			return err
		}

		id, err := work.OrderRepository().Insert(ctx, o)
		if err != nil {
			return mapRepositoryError(fmt.Errorf("failed to create order: %w", err), "order", id)
		}

		items := []orderitem.OrderItem{}
		if len(cmd.Items) > 0 {
			items, err = s.reconciler.Reconcile(ctx, work.OrderItemRepository(), id, reconciler.Replace, cmd.Items, false)
			if err != nil {
				return mapRepositoryError(err, "order", id)
			}
		}

		computed, err := boundedTotals(items, discount)
		if err != nil {
			return err
		}
		if err := work.OrderRepository().UpdateTotals(ctx, id, computed, now); err != nil {
			return mapRepositoryError(err, "order", id)
		}

		err = work.StatusHistoryRepository().Insert(ctx, statushistory.Entry{
			OrderID:   id,
			ToStatus:  status.Name,
			Notes:     "order created",
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		created, err = loadOrder(ctx, work, id)

		return err
	})
	if err != nil {
		return order.Order{}, err
	}

	slog.Info("Service order created",
		"order_id", created.ID,
		"order_number", created.OrderNumber,
		"client_id", created.ClientID,
	)

	s.afterCommit(ctx, event.OrderCreated, "", created, created.Snapshot())

	return created, nil
}

// UpdateOrder changes header fields under the order lock and recomputes totals with the
// resulting discount.
func (s *OrderService) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (updated order.Order, err error) {
	ctx, span := startSpan(ctx, "UpdateOrder")
	defer func() { endSpan(span, err) }()

	if err := cmd.validate(); err != nil {
		return order.Order{}, err
	}

	now := s.now()
	var before order.Snapshot

	err = s.inTx(ctx, func(work unitOfWork) error {
		o, err := s.lockOrder(ctx, work, cmd.OrderID)
		if err != nil {
			return err
		}
		before = o.Snapshot()

		if cmd.TechnicianID != nil {
			o.TechnicianID = cmd.TechnicianID
		}
		if cmd.AttendantID != nil {
			o.AttendantID = cmd.AttendantID
		}
		if cmd.PaymentMethod != nil {
			o.PaymentMethod, _ = paymentmethod.Parse(*cmd.PaymentMethod)
		}
		if cmd.ScheduledAt != nil {
			o.ScheduledAt = cmd.ScheduledAt.UTC()
		}
		if cmd.Mileage != nil {
			o.Mileage = cmd.Mileage
		}
		if cmd.Discount != nil {
			o.DiscountAmount = *cmd.Discount
		}
		if cmd.Notes != nil {
			o.Notes = *cmd.Notes
		}

		items, err := work.OrderItemRepository().ListByOrder(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("failed to load items of order %d: %w", o.ID, err)
		}
		computed, err := boundedTotals(items, o.DiscountAmount)
		if err != nil {
			return err
		}
		applyTotals(&o, computed)
		o.UpdatedAt = now

		if err := work.OrderRepository().Update(ctx, o); err != nil {
			return mapRepositoryError(err, "order", o.ID)
		}

		updated, err = loadOrder(ctx, work, o.ID)

		return err
	})
	if err != nil {
		return order.Order{}, err
	}

	s.afterCommit(ctx, event.OrderUpdated, "", updated, before, updated.Snapshot())

	return updated, nil
}

// ChangeStatus runs the workflow transition under the order lock. Completing an order with a
// mileage reading updates the vehicle after commit; that update is best effort.
func (s *OrderService) ChangeStatus(ctx context.Context, cmd ChangeStatusCommand) (changed order.Order, err error) {
	ctx, span := startSpan(ctx, "ChangeStatus")
	defer func() { endSpan(span, err) }()

	if err := cmd.validate(); err != nil {
		return order.Order{}, err
	}

	now := s.now()
	var previous orderstatus.Status

	err = s.inTx(ctx, func(work unitOfWork) error {
		o, err := s.lockOrder(ctx, work, cmd.OrderID)
		if err != nil {
			return err
		}
		previous = o.Status

		target, err := work.OrderStatusRepository().GetByID(ctx, cmd.StatusID)
		if err != nil {
			return mapRepositoryError(err, "status", cmd.StatusID)
		}

		next, err := workflow.Transition(o, target.Name, target.ID, now)
		if err != nil {
			return err
		}

		if err := work.OrderRepository().Update(ctx, next); err != nil {
			return mapRepositoryError(err, "order", next.ID)
		}

		err = work.StatusHistoryRepository().Insert(ctx, statushistory.Entry{
			OrderID:    next.ID,
			FromStatus: previous,
			ToStatus:   target.Name,
			Notes:      cmd.Notes,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}

		changed, err = loadOrder(ctx, work, next.ID)

		return err
	})
	if err != nil {
		return order.Order{}, err
	}

	slog.Info("Service order status changed",
		"order_id", changed.ID,
		"from_status", previous,
		"to_status", changed.Status,
	)

	if workflow.NeedsVehicleSync(changed, changed.Status) {
		s.syncVehicle(ctx, changed)
	}

	s.afterCommit(ctx, event.OrderStatusChanged, previous, changed, changed.Snapshot())

	return changed, nil
}

// syncVehicle records the completed service on the vehicle. Failures are logged only.
func (s *OrderService) syncVehicle(ctx context.Context, o order.Order) {
	serviceDate := s.now()
	if o.CompletedAt != nil {
		serviceDate = *o.CompletedAt
	}

	err := s.newUOW().VehicleRepository().RecordService(context.WithoutCancel(ctx), o.VehicleID, *o.Mileage, serviceDate)
	if err != nil {
		slog.Warn("Failed to sync vehicle mileage after order completion",
			"order_id", o.ID,
			"vehicle_id", o.VehicleID,
			"mileage", *o.Mileage,
			"error", err,
		)
	}
}

// ReconcileItems applies a replace, update or merge of line items and recomputes the order
// totals in the same transaction. Writes to the same order are serialized by its row lock.
func (s *OrderService) ReconcileItems(ctx context.Context, cmd ReconcileItemsCommand) (reconciled order.Order, err error) {
	ctx, span := startSpan(ctx, "ReconcileItems")
	defer func() { endSpan(span, err) }()

	mode, err := reconciler.ParseMode(cmd.Operation)
	if err != nil {
		return order.Order{}, err
	}
	if cmd.OrderID <= 0 {
		return order.Order{}, apperrors.Validation("order id is required")
	}
	if err := reconciler.Validate(cmd.Items); err != nil {
		return order.Order{}, err
	}

	now := s.now()

	err = s.inTx(ctx, func(work unitOfWork) error {
		o, err := s.lockOrder(ctx, work, cmd.OrderID)
		if err != nil {
			return err
		}

		if err := ensureProducts(ctx, work, cmd.Items); err != nil {
			return err
		}

		items, err := s.reconciler.Reconcile(ctx, work.OrderItemRepository(), o.ID, mode, cmd.Items, cmd.RemoveUnsent)
		if err != nil {
			return mapRepositoryError(err, "order", o.ID)
		}

		computed, err := boundedTotals(items, o.DiscountAmount)
		if err != nil {
			return err
		}
		if err := work.OrderRepository().UpdateTotals(ctx, o.ID, computed, now); err != nil {
			return mapRepositoryError(err, "order", o.ID)
		}

		reconciled, err = loadOrder(ctx, work, o.ID)

		return err
	})
	if err != nil {
		return order.Order{}, err
	}

	slog.Info("Service order items reconciled",
		"order_id", reconciled.ID,
		"operation", mode,
		"items", len(reconciled.OrderItems),
	)

	s.afterCommit(ctx, event.OrderItemsReconciled, "", reconciled, reconciled.Snapshot())

	return reconciled, nil
}

// ComputeTotals recomputes and stores the amounts of an order from its persisted items.
func (s *OrderService) ComputeTotals(ctx context.Context, orderID int64) (recomputed order.Order, err error) {
	ctx, span := startSpan(ctx, "ComputeTotals")
	defer func() { endSpan(span, err) }()

	if orderID <= 0 {
		return order.Order{}, apperrors.Validation("order id is required")
	}

	now := s.now()

	err = s.inTx(ctx, func(work unitOfWork) error {
		o, err := s.lockOrder(ctx, work, orderID)
		if err != nil {
			return err
		}

		items, err := work.OrderItemRepository().ListByOrder(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("failed to load items of order %d: %w", o.ID, err)
		}

		computed, err := boundedTotals(items, o.DiscountAmount)
		if err != nil {
			return err
		}
		if err := work.OrderRepository().UpdateTotals(ctx, o.ID, computed, now); err != nil {
			return mapRepositoryError(err, "order", o.ID)
		}

		recomputed, err = loadOrder(ctx, work, o.ID)

		return err
	})
	if err != nil {
		return order.Order{}, err
	}

	s.afterCommit(ctx, event.OrderUpdated, "", recomputed, recomputed.Snapshot())

	return recomputed, nil
}

// DeleteOrder soft-deletes an order. Its items stay referenced by it.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) (err error) {
	ctx, span := startSpan(ctx, "DeleteOrder")
	defer func() { endSpan(span, err) }()

	if orderID <= 0 {
		return apperrors.Validation("order id is required")
	}

	now := s.now()
	var deleted order.Order

	err = s.inTx(ctx, func(work unitOfWork) error {
		o, err := s.lockOrder(ctx, work, orderID)
		if err != nil {
			return err
		}

		if err := work.OrderRepository().SoftDelete(ctx, o.ID, now); err != nil {
			return mapRepositoryError(err, "order", o.ID)
		}

		o.Active = false
		o.DeletedAt = &now
		deleted = o

		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Service order deleted", "order_id", orderID)

	s.afterCommit(ctx, event.OrderDeleted, "", deleted, deleted.Snapshot())

	return nil
}

func (s *OrderService) resolveStatus(
	ctx context.Context,
	work unitOfWork,
	statusID *int64,
) (orderstatus.OrderStatus, error) {
	if statusID == nil {
		status, err := work.OrderStatusRepository().GetByName(ctx, workflow.Initial)
		if err != nil {
			return orderstatus.OrderStatus{}, fmt.Errorf("failed to resolve initial status: %w", err)
		}

		return status, nil
	}

	status, err := work.OrderStatusRepository().GetByID(ctx, *statusID)
	if err != nil {
		return orderstatus.OrderStatus{}, mapRepositoryError(err, "status", *statusID)
	}

	return status, nil
}

// ensureProducts fails with NotFound when a descriptor references an unknown product.
func ensureProducts(ctx context.Context, work unitOfWork, descriptors []orderitem.Descriptor) error {
	ids := reconciler.ProductIDs(descriptors)
	if len(ids) == 0 {
		return nil
	}

	products, err := work.ProductRepository().GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	found := make(map[int64]bool, len(products))
	for _, p := range products {
		found[p.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return apperrors.NotFound("product %d not found", id)
		}
	}

	return nil
}

// boundedTotals computes the order amounts and rejects sums the amount columns cannot hold.
func boundedTotals(items []orderitem.OrderItem, discount decimal.Decimal) (totals.Totals, error) {
	t := totals.Compute(items, discount)
	if !t.WithinBounds() {
		return t, apperrors.Validation("order total %s exceeds %s", t.Total, totals.MaxAmount)
	}

	return t, nil
}

func applyTotals(o *order.Order, t totals.Totals) {
	o.TotalAmount = t.Total
	o.DiscountAmount = t.Discount
	o.FinalAmount = t.Final
}
