package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/event"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow    = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	scheduledAt = time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
)

type harness struct {
	svc    *OrderService
	store  *memStore
	cache  *recordingCache
	events *recordingEvents
	log    *callLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := &callLog{}
	h := &harness{
		store:  newMemStore(),
		cache:  newRecordingCache(log),
		events: &recordingEvents{log: log},
		log:    log,
	}
	h.svc = MustNewOrderService(
		WithUnitOfWorkFactory(h.store.factory()),
		WithCache(h.cache, time.Minute),
		WithEventRepository(h.events),
		WithClock(func() time.Time { return fixedNow }),
	)

	return h
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)

	return &d
}

func ptr[T any](v T) *T {
	return &v
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func defaultItems() []orderitem.Descriptor {
	return []orderitem.Descriptor{
		{ProductID: 100, Quantity: 2, UnitPrice: dec("25.00"), Discount: dec("10")},
		{ProductID: 200, Quantity: 1, UnitPrice: dec("180.00")},
	}
}

func createCmd() CreateOrderCommand {
	return CreateOrderCommand{
		ClientID:      1,
		VehicleID:     10,
		CenterID:      5,
		PaymentMethod: "pix",
		ScheduledAt:   scheduledAt,
		Mileage:       ptr(int64(45000)),
		Discount:      dec("25"),
		Notes:         "noise when braking",
		Items:         defaultItems(),
	}
}

func (h *harness) create(t *testing.T) order.Order {
	t.Helper()

	o, err := h.svc.CreateOrder(context.Background(), createCmd())
	require.NoError(t, err)

	return o
}

func TestMustNewOrderServicePanicsWithoutStorage(t *testing.T) {
	assert.Panics(t, func() { MustNewOrderService() })
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)

	o, err := h.svc.CreateOrder(context.Background(), createCmd())
	require.NoError(t, err)

	assert.Equal(t, int64(1), o.ID)
	assert.Equal(t, "OS202506020001", o.OrderNumber)
	assert.Equal(t, orderstatus.Scheduled, o.Status)
	assert.Equal(t, int64(1), o.StatusID)
	assert.True(t, o.Active)
	assert.Nil(t, o.StartedAt)
	require.Len(t, o.OrderItems, 2)
	assertAmount(t, "45", o.OrderItems[0].TotalPrice)
	assertAmount(t, "180", o.OrderItems[1].TotalPrice)
	assertAmount(t, "225", o.TotalAmount)
	assertAmount(t, "25", o.DiscountAmount)
	assertAmount(t, "200", o.FinalAmount)

	data := h.store.snapshot()
	require.Len(t, data.history, 1)
	assert.Equal(t, orderstatus.Scheduled, data.history[0].ToStatus)
	assert.Equal(t, orderstatus.Status(""), data.history[0].FromStatus)

	events := h.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, event.OrderCreated, events[0].Type)
	assert.Equal(t, "OS202506020001", events[0].OrderNumber)
	require.NotNil(t, events[0].Order)

	assert.Equal(t, []string{"invalidate", "publish:order.created"}, h.log.all())
	assert.Subset(t, h.cache.forgottenKeys(), []string{
		"order:1",
		"client:1:orders",
		"center:5:orders",
		"dashboard:5:day:2025-06-03",
		"dashboard:all:day:2025-06-03",
		"dashboard:all:week:2025-W23",
		"dashboard:all:month:2025-06",
	})
}

func TestCreateOrderNumbersAreSequentialPerDay(t *testing.T) {
	h := newHarness(t)

	first := h.create(t)
	second := h.create(t)

	assert.Equal(t, "OS202506020001", first.OrderNumber)
	assert.Equal(t, "OS202506020002", second.OrderNumber)
}

func TestCreateOrderWithoutItems(t *testing.T) {
	h := newHarness(t)
	cmd := createCmd()
	cmd.Items = nil
	cmd.Discount = nil

	o, err := h.svc.CreateOrder(context.Background(), cmd)
	require.NoError(t, err)

	assert.Empty(t, o.OrderItems)
	assertAmount(t, "0", o.TotalAmount)
	assertAmount(t, "0", o.FinalAmount)
}

func TestCreateOrderInNonInitialStatusAppliesEntryEffects(t *testing.T) {
	h := newHarness(t)
	cmd := createCmd()
	cmd.StatusID = ptr(int64(2))

	o, err := h.svc.CreateOrder(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, orderstatus.InProgress, o.Status)
	require.NotNil(t, o.StartedAt)
	assert.True(t, o.StartedAt.Equal(fixedNow))
}

func TestCreateOrderRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *CreateOrderCommand)
		want   error
	}{
		{name: "missing client", mutate: func(c *CreateOrderCommand) { c.ClientID = 0 }, want: apperrors.ErrValidation},
		{name: "bad payment method", mutate: func(c *CreateOrderCommand) { c.PaymentMethod = "barter" }, want: apperrors.ErrValidation},
		{name: "negative discount", mutate: func(c *CreateOrderCommand) { c.Discount = dec("-1") }, want: apperrors.ErrValidation},
		{name: "zero quantity", mutate: func(c *CreateOrderCommand) { c.Items[0].Quantity = 0 }, want: apperrors.ErrValidation},
		{name: "unknown client", mutate: func(c *CreateOrderCommand) { c.ClientID = 99 }, want: apperrors.ErrNotFound},
		{name: "unknown vehicle", mutate: func(c *CreateOrderCommand) { c.VehicleID = 99 }, want: apperrors.ErrNotFound},
		{name: "foreign vehicle", mutate: func(c *CreateOrderCommand) { c.VehicleID = 20 }, want: apperrors.ErrOwnershipMismatch},
		{name: "unknown status", mutate: func(c *CreateOrderCommand) { c.StatusID = ptr(int64(99)) }, want: apperrors.ErrNotFound},
		{name: "unknown product", mutate: func(c *CreateOrderCommand) { c.Items[1].ProductID = 999 }, want: apperrors.ErrNotFound},
		{name: "sub-cent unit price", mutate: func(c *CreateOrderCommand) { c.Items[0].UnitPrice = dec("0.005") }, want: apperrors.ErrValidation},
		{name: "sub-cent order discount", mutate: func(c *CreateOrderCommand) { c.Discount = dec("1.255") }, want: apperrors.ErrValidation},
		{name: "quantity beyond int32", mutate: func(c *CreateOrderCommand) { c.Items[1].Quantity = math.MaxInt32 + 1 }, want: apperrors.ErrValidation},
		{
			name: "order total beyond column",
			mutate: func(c *CreateOrderCommand) {
				c.Items = []orderitem.Descriptor{
					{ProductID: 100, Quantity: 1, UnitPrice: dec("9999999999.99")},
					{ProductID: 200, Quantity: 1, UnitPrice: dec("9999999999.99")},
				}
			},
			want: apperrors.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			cmd := createCmd()
			tc.mutate(&cmd)

			_, err := h.svc.CreateOrder(context.Background(), cmd)
			require.ErrorIs(t, err, tc.want)

			data := h.store.snapshot()
			assert.Empty(t, data.orders)
			assert.Empty(t, data.items)
			assert.Empty(t, data.sequences)
			assert.Empty(t, h.events.all())
			assert.Empty(t, h.log.all())
		})
	}
}

func TestCreateOrderRollsBackWhenItemsFail(t *testing.T) {
	h := newHarness(t)
	h.store.itemInsertErr = errors.New("disk full")

	_, err := h.svc.CreateOrder(context.Background(), createCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	data := h.store.snapshot()
	assert.Empty(t, data.orders)
	assert.Empty(t, data.sequences)
	assert.Empty(t, data.history)
	assert.Empty(t, h.log.all())
}

func TestUpdateOrderReschedulesAndRecomputes(t *testing.T) {
	h := newHarness(t)
	created := h.create(t)
	newDate := time.Date(2025, 7, 10, 14, 0, 0, 0, time.UTC)

	updated, err := h.svc.UpdateOrder(context.Background(), UpdateOrderCommand{
		OrderID:       created.ID,
		ScheduledAt:   &newDate,
		Discount:      dec("50"),
		PaymentMethod: ptr("card"),
		TechnicianID:  ptr(int64(7)),
	})
	require.NoError(t, err)

	assert.True(t, updated.ScheduledAt.Equal(newDate))
	assertAmount(t, "225", updated.TotalAmount)
	assertAmount(t, "50", updated.DiscountAmount)
	assertAmount(t, "175", updated.FinalAmount)
	assert.Equal(t, "card", updated.PaymentMethod.String())
	assert.Equal(t, int64(7), *updated.TechnicianID)
	assert.Equal(t, "noise when braking", updated.Notes)

	forgotten := h.cache.forgottenKeys()
	assert.Contains(t, forgotten, "dashboard:all:month:2025-06")
	assert.Contains(t, forgotten, "dashboard:all:month:2025-07")
	assert.Contains(t, forgotten, "dashboard:5:day:2025-07-10")

	events := h.events.all()
	require.Len(t, events, 2)
	assert.Equal(t, event.OrderUpdated, events[1].Type)
}

func TestUpdateOrderValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.UpdateOrder(context.Background(), UpdateOrderCommand{OrderID: 1, Mileage: ptr(int64(-5))})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.svc.UpdateOrder(context.Background(), UpdateOrderCommand{OrderID: 42, Notes: ptr("x")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChangeStatusLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.create(t)

	started, err := h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 2})
	require.NoError(t, err)
	assert.Equal(t, orderstatus.InProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	completed, err := h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 3, Notes: "done"})
	require.NoError(t, err)
	assert.Equal(t, orderstatus.Completed, completed.Status)
	assert.Equal(t, int64(3), completed.StatusID)
	require.NotNil(t, completed.CompletedAt)
	assert.True(t, completed.CompletedAt.Equal(fixedNow))

	data := h.store.snapshot()
	v := data.vehicles[10]
	assert.Equal(t, int64(45000), v.Mileage)
	require.NotNil(t, v.LastServiceDate)
	assert.True(t, v.LastServiceDate.Equal(fixedNow))

	require.Len(t, data.history, 3)
	assert.Equal(t, orderstatus.InProgress, data.history[2].FromStatus)
	assert.Equal(t, orderstatus.Completed, data.history[2].ToStatus)
	assert.Equal(t, "done", data.history[2].Notes)

	events := h.events.all()
	require.Len(t, events, 3)
	assert.Equal(t, event.OrderStatusChanged, events[2].Type)
	assert.Equal(t, orderstatus.InProgress, events[2].PreviousStatus)
	assert.Equal(t, orderstatus.Completed, events[2].CurrentStatus)
}

func TestChangeStatusVehicleSyncFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cmd := createCmd()
	cmd.StatusID = ptr(int64(2))
	created, err := h.svc.CreateOrder(ctx, cmd)
	require.NoError(t, err)

	h.store.vehicleSyncErr = errors.New("vehicles table locked")

	completed, err := h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 3})
	require.NoError(t, err)
	assert.Equal(t, orderstatus.Completed, completed.Status)

	data := h.store.snapshot()
	assert.Equal(t, orderstatus.Completed, data.orders[created.ID].Status)
	assert.Equal(t, int64(40000), data.vehicles[10].Mileage)
	assert.Nil(t, data.vehicles[10].LastServiceDate)
}

func TestChangeStatusRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.create(t)

	_, err := h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "same status")

	_, err = h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 3})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "skipping in_progress")

	_, err = h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 99})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: 404, StatusID: 2})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 4})
	require.NoError(t, err)
	_, err = h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 2})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "cancelled is terminal")

	data := h.store.snapshot()
	assert.Equal(t, orderstatus.Cancelled, data.orders[created.ID].Status)
	assert.Len(t, data.history, 2)
	assert.Len(t, h.events.all(), 2)
}

func TestReconcileItemsUpdateWithRemoveUnsent(t *testing.T) {
	h := newHarness(t)
	created := h.create(t)
	oilFilterID := created.OrderItems[0].ID

	o, err := h.svc.ReconcileItems(context.Background(), ReconcileItemsCommand{
		OrderID:      created.ID,
		Operation:    "update",
		Items:        []orderitem.Descriptor{{ProductID: 100, Quantity: 4, UnitPrice: dec("25.00")}},
		RemoveUnsent: true,
	})
	require.NoError(t, err)

	require.Len(t, o.OrderItems, 1)
	assert.Equal(t, oilFilterID, o.OrderItems[0].ID)
	assert.Equal(t, 4, o.OrderItems[0].Quantity)
	assertAmount(t, "100", o.TotalAmount)
	assertAmount(t, "75", o.FinalAmount)

	events := h.events.all()
	require.Len(t, events, 2)
	assert.Equal(t, event.OrderItemsReconciled, events[1].Type)
}

func TestReconcileItemsReplaceAndMerge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.create(t)

	replaced, err := h.svc.ReconcileItems(ctx, ReconcileItemsCommand{
		OrderID:   created.ID,
		Operation: "replace",
		Items:     []orderitem.Descriptor{{ProductID: 200, Quantity: 2, UnitPrice: dec("180.00")}},
	})
	require.NoError(t, err)
	require.Len(t, replaced.OrderItems, 1)
	assertAmount(t, "360", replaced.TotalAmount)

	merged, err := h.svc.ReconcileItems(ctx, ReconcileItemsCommand{
		OrderID:   created.ID,
		Operation: "merge",
		Items:     []orderitem.Descriptor{{ProductID: 200, Quantity: 1, UnitPrice: dec("180.00")}},
	})
	require.NoError(t, err)
	require.Len(t, merged.OrderItems, 2)
	assertAmount(t, "540", merged.TotalAmount)
	assertAmount(t, "515", merged.FinalAmount)
}

func TestReconcileItemsRejectsBeforeWriting(t *testing.T) {
	cases := []struct {
		name string
		cmd  ReconcileItemsCommand
		want error
	}{
		{
			name: "unknown operation",
			cmd:  ReconcileItemsCommand{OrderID: 1, Operation: "upsert", Items: defaultItems()},
			want: apperrors.ErrInvalidOperation,
		},
		{
			name: "missing unit price",
			cmd:  ReconcileItemsCommand{OrderID: 1, Operation: "merge", Items: []orderitem.Descriptor{{ProductID: 100, Quantity: 1}}},
			want: apperrors.ErrValidation,
		},
		{
			name: "foreign item id",
			cmd: ReconcileItemsCommand{OrderID: 1, Operation: "update", Items: []orderitem.Descriptor{
				{ID: ptr(int64(77)), ProductID: 100, Quantity: 1, UnitPrice: dec("25.00")},
			}},
			want: apperrors.ErrNotFound,
		},
		{
			name: "unknown product",
			cmd: ReconcileItemsCommand{OrderID: 1, Operation: "merge", Items: []orderitem.Descriptor{
				{ProductID: 999, Quantity: 1, UnitPrice: dec("1.00")},
			}},
			want: apperrors.ErrNotFound,
		},
		{
			name: "unknown order",
			cmd:  ReconcileItemsCommand{OrderID: 2, Operation: "merge", Items: defaultItems()},
			want: apperrors.ErrNotFound,
		},
		{
			name: "sub-cent unit price",
			cmd: ReconcileItemsCommand{OrderID: 1, Operation: "merge", Items: []orderitem.Descriptor{
				{ProductID: 100, Quantity: 3, UnitPrice: dec("0.005")},
			}},
			want: apperrors.ErrValidation,
		},
		{
			name: "order total beyond column",
			cmd: ReconcileItemsCommand{OrderID: 1, Operation: "merge", Items: []orderitem.Descriptor{
				{ProductID: 100, Quantity: 1, UnitPrice: dec("9999999999.99")},
			}},
			want: apperrors.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.create(t)
			before := h.store.snapshot()

			_, err := h.svc.ReconcileItems(context.Background(), tc.cmd)
			require.ErrorIs(t, err, tc.want)

			after := h.store.snapshot()
			assert.Equal(t, before.items, after.items)
			assert.Equal(t, before.orders, after.orders)
			assert.Len(t, h.events.all(), 1)
		})
	}
}

func TestReconcileItemsReplaceRollsBackWhenInsertFails(t *testing.T) {
	h := newHarness(t)
	created := h.create(t)
	before := h.store.snapshot()
	h.store.itemInsertErr = errors.New("disk full")

	_, err := h.svc.ReconcileItems(context.Background(), ReconcileItemsCommand{
		OrderID:   created.ID,
		Operation: "replace",
		Items:     []orderitem.Descriptor{{ProductID: 200, Quantity: 2, UnitPrice: dec("180.00")}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	after := h.store.snapshot()
	assert.Len(t, after.items, 2)
	assert.Equal(t, before.items, after.items)
	assertAmount(t, "225", after.orders[created.ID].TotalAmount)
	assertAmount(t, "200", after.orders[created.ID].FinalAmount)
	assert.Len(t, h.events.all(), 1)
}

func TestReconcileItemsUpdateRollsBackWhenTotalsFail(t *testing.T) {
	h := newHarness(t)
	created := h.create(t)
	before := h.store.snapshot()
	invalidated := len(h.cache.forgottenKeys())
	h.store.updateTotalsErr = errors.New("connection reset")

	_, err := h.svc.ReconcileItems(context.Background(), ReconcileItemsCommand{
		OrderID:      created.ID,
		Operation:    "update",
		Items:        []orderitem.Descriptor{{ProductID: 100, Quantity: 4, UnitPrice: dec("25.00")}},
		RemoveUnsent: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	after := h.store.snapshot()
	assert.Equal(t, before.items, after.items)
	assert.Equal(t, before.orders, after.orders)
	assert.Len(t, h.events.all(), 1)
	assert.Len(t, h.cache.forgottenKeys(), invalidated)
}

func TestReconcileItemsMapsConstraintViolations(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "product deleted concurrently", err: &pgconn.PgError{Code: "23503"}, want: apperrors.ErrNotFound},
		{name: "check constraint", err: &pgconn.PgError{Code: "23514"}, want: apperrors.ErrValidation},
		{name: "unique constraint", err: &pgconn.PgError{Code: "23505"}, want: apperrors.ErrConcurrencyConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			created := h.create(t)
			before := h.store.snapshot()
			h.store.itemInsertErr = fmt.Errorf("failed to insert order items: %w", tc.err)

			_, err := h.svc.ReconcileItems(context.Background(), ReconcileItemsCommand{
				OrderID:   created.ID,
				Operation: "merge",
				Items:     defaultItems(),
			})
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, before.items, h.store.snapshot().items)
		})
	}
}

func TestReconcileItemsLockTimeoutIsConflict(t *testing.T) {
	h := newHarness(t)
	created := h.create(t)
	h.store.lockErr = &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}

	_, err := h.svc.ReconcileItems(context.Background(), ReconcileItemsCommand{
		OrderID:   created.ID,
		Operation: "merge",
		Items:     defaultItems(),
	})
	require.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
	assert.Len(t, h.store.snapshot().items, 2)
}

func TestConcurrentReconcilesOnSameOrderAreSerialized(t *testing.T) {
	h := newHarness(t)
	cmd := createCmd()
	cmd.Items = nil
	cmd.Discount = nil
	created, err := h.svc.CreateOrder(context.Background(), cmd)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.ReconcileItems(context.Background(), ReconcileItemsCommand{
				OrderID:   created.ID,
				Operation: "merge",
				Items:     []orderitem.Descriptor{{ProductID: 100, Quantity: 1, UnitPrice: dec("25.00")}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	o, err := h.svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, o.OrderItems, writers)
	assertAmount(t, "200", o.TotalAmount)
	assertAmount(t, "200", o.FinalAmount)
}

func TestComputeTotalsRepairsStoredAmounts(t *testing.T) {
	h := newHarness(t)
	created := h.create(t)
	h.store.mutate(func(d *storeData) {
		o := d.orders[created.ID]
		o.TotalAmount = decimal.Zero
		o.FinalAmount = decimal.Zero
		d.orders[created.ID] = o
	})

	o, err := h.svc.ComputeTotals(context.Background(), created.ID)
	require.NoError(t, err)

	assertAmount(t, "225", o.TotalAmount)
	assertAmount(t, "200", o.FinalAmount)
	assertAmount(t, "225", h.store.snapshot().orders[created.ID].TotalAmount)

	_, err = h.svc.ComputeTotals(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestDeleteOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.create(t)

	require.NoError(t, h.svc.DeleteOrder(ctx, created.ID))

	stored := h.store.snapshot().orders[created.ID]
	assert.False(t, stored.Active)
	require.NotNil(t, stored.DeletedAt)

	_, err := h.svc.GetOrder(ctx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, h.svc.DeleteOrder(ctx, created.ID), apperrors.ErrNotFound)

	events := h.events.all()
	require.Len(t, events, 2)
	assert.Equal(t, event.OrderDeleted, events[1].Type)
	assert.Nil(t, events[1].Order)
}

func TestGetOrderReadsThroughCacheUntilInvalidated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.create(t)

	first, err := h.svc.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, h.cache.has("order:1"))

	h.store.mutate(func(d *storeData) {
		o := d.orders[created.ID]
		o.Notes = "changed behind the cache"
		d.orders[created.ID] = o
	})

	cached, err := h.svc.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Notes, cached.Notes)
	assert.Len(t, cached.OrderItems, 2)
	assertAmount(t, "200", cached.FinalAmount)

	_, err = h.svc.UpdateOrder(ctx, UpdateOrderCommand{OrderID: created.ID, Notes: ptr("fresh")})
	require.NoError(t, err)
	assert.False(t, h.cache.has("order:1"))

	fresh, err := h.svc.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", fresh.Notes)
}

func TestListOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.create(t)
	h.create(t)
	other := createCmd()
	other.ClientID = 2
	other.VehicleID = 20
	_, err := h.svc.CreateOrder(ctx, other)
	require.NoError(t, err)

	orders, err := h.svc.ListOrders(ctx, order.QueryOrdersModel{ClientIds: []int64{1}})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, int64(1), o.ClientID)
		assert.Len(t, o.OrderItems, 2)
	}
	assert.True(t, h.cache.has("client:1:orders"))

	page, err := h.svc.ListOrders(ctx, order.QueryOrdersModel{CenterIds: []int64{5}, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.False(t, h.cache.has("center:5:orders"))

	_, err = h.svc.ListOrders(ctx, order.QueryOrdersModel{Limit: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestListCacheKey(t *testing.T) {
	from := fixedNow
	cases := []struct {
		name   string
		filter order.QueryOrdersModel
		key    string
		ok     bool
	}{
		{name: "client", filter: order.QueryOrdersModel{ClientIds: []int64{3}}, key: "client:3:orders", ok: true},
		{name: "center", filter: order.QueryOrdersModel{CenterIds: []int64{5}}, key: "center:5:orders", ok: true},
		{name: "both", filter: order.QueryOrdersModel{ClientIds: []int64{3}, CenterIds: []int64{5}}},
		{name: "two clients", filter: order.QueryOrdersModel{ClientIds: []int64{3, 4}}},
		{name: "status filter", filter: order.QueryOrdersModel{ClientIds: []int64{3}, StatusIds: []int64{1}}},
		{name: "date filter", filter: order.QueryOrdersModel{CenterIds: []int64{5}, ScheduledFrom: &from}},
		{name: "paged", filter: order.QueryOrdersModel{ClientIds: []int64{3}, Offset: 10}},
		{name: "unscoped"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := listCacheKey(tc.filter)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.key, key)
		})
	}
}

func TestListStatuses(t *testing.T) {
	h := newHarness(t)

	statuses, err := h.svc.ListStatuses(context.Background())
	require.NoError(t, err)

	require.Len(t, statuses, 4)
	assert.Equal(t, orderstatus.Scheduled, statuses[0].Name)
	assert.True(t, h.cache.has("order_statuses"))
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, day := range []time.Time{
		time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
	} {
		cmd := createCmd()
		cmd.ScheduledAt = day
		cmd.StatusID = ptr(int64(2))
		_, err := h.svc.CreateOrder(ctx, cmd)
		require.NoError(t, err)
	}
	_, err := h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: 1, StatusID: 3})
	require.NoError(t, err)

	d, err := h.svc.Dashboard(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(5), d.CenterID)
	require.Len(t, d.Summaries, 3)

	day, week, month := d.Summaries[0], d.Summaries[1], d.Summaries[2]
	assert.Equal(t, int64(1), day.Orders)
	assert.Equal(t, int64(2), week.Orders)
	assert.Equal(t, int64(3), month.Orders)
	assertAmount(t, "200", day.Revenue)
	assertAmount(t, "200", month.Revenue)
	assert.Equal(t, int64(2), month.ByStatus["in_progress"])
	assert.Equal(t, int64(1), month.ByStatus["completed"])
	assert.True(t, h.cache.has("dashboard:5:week:2025-W23"))

	all, err := h.svc.Dashboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Summaries[2].Orders)
	assert.True(t, h.cache.has("dashboard:all:month:2025-06"))

	_, err = h.svc.Dashboard(ctx, -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.create(t)
	_, err := h.svc.ChangeStatus(ctx, ChangeStatusCommand{OrderID: created.ID, StatusID: 4, Notes: "client gave up"})
	require.NoError(t, err)

	entries, err := h.svc.GetHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, orderstatus.Cancelled, entries[1].ToStatus)
	assert.Equal(t, "client gave up", entries[1].Notes)

	_, err = h.svc.GetHistory(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
