package ordersvc

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iclientrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderstatusrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/isequencerepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/istatushistoryrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/ivehiclerepo"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/client"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/dashboard"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/event"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/product"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/statushistory"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/vehicle"
	"github.com/corray333/backend-labs/serviceorder/internal/service/totals"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// storeData is one consistent version of the database.
type storeData struct {
	orders      map[int64]order.Order
	items       map[int64]orderitem.OrderItem
	clients     map[int64]client.Client
	vehicles    map[int64]vehicle.Vehicle
	products    map[int64]product.Product
	statuses    []orderstatus.OrderStatus
	sequences   map[string]int64
	history     []statushistory.Entry
	nextOrderID int64
	nextItemID  int64
}

func (d *storeData) clone() *storeData {
	return &storeData{
		orders:      maps.Clone(d.orders),
		items:       maps.Clone(d.items),
		clients:     maps.Clone(d.clients),
		vehicles:    maps.Clone(d.vehicles),
		products:    maps.Clone(d.products),
		statuses:    slices.Clone(d.statuses),
		sequences:   maps.Clone(d.sequences),
		history:     slices.Clone(d.history),
		nextOrderID: d.nextOrderID,
		nextItemID:  d.nextItemID,
	}
}

// memStore mimics Postgres closely enough for the service: transactions see a private
// copy that replaces the committed data on Commit, and txMu serializes writers the way
// the order row lock does.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex
	data   *storeData

	itemInsertErr   error
	lockErr         error
	vehicleSyncErr  error
	updateTotalsErr error
}

func newMemStore() *memStore {
	return &memStore{
		data: &storeData{
			orders:  map[int64]order.Order{},
			items:   map[int64]orderitem.OrderItem{},
			clients: map[int64]client.Client{1: {ID: 1, Name: "Ana", Active: true}, 2: {ID: 2, Name: "Bruno", Active: true}},
			vehicles: map[int64]vehicle.Vehicle{
				10: {ID: 10, ClientID: 1, Plate: "ABC1D23", Mileage: 40000},
				20: {ID: 20, ClientID: 2, Plate: "XYZ9K88", Mileage: 1000},
			},
			products: map[int64]product.Product{
				100: {ID: 100, Name: "Oil filter", Price: decimal.RequireFromString("25.00"), Active: true},
				200: {ID: 200, Name: "Brake pads", Price: decimal.RequireFromString("180.00"), Active: true},
			},
			statuses: []orderstatus.OrderStatus{
				{ID: 1, Name: orderstatus.Scheduled, Label: "Scheduled", SortOrder: 1},
				{ID: 2, Name: orderstatus.InProgress, Label: "In progress", SortOrder: 2},
				{ID: 3, Name: orderstatus.Completed, Label: "Completed", SortOrder: 3},
				{ID: 4, Name: orderstatus.Cancelled, Label: "Cancelled", SortOrder: 4},
			},
			sequences: map[string]int64{},
		},
	}
}

func (s *memStore) factory() func() unitOfWork {
	return func() unitOfWork {
		return &memWork{store: s}
	}
}

// snapshot returns a copy of the committed data for assertions.
func (s *memStore) snapshot() *storeData {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	return s.data.clone()
}

func (s *memStore) mutate(fn func(d *storeData)) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	fn(s.data)
}

type memWork struct {
	store *memStore
	tx    *storeData
}

func (w *memWork) Begin(context.Context) error {
	if w.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	w.store.txMu.Lock()
	w.store.dataMu.Lock()
	w.tx = w.store.data.clone()
	w.store.dataMu.Unlock()

	return nil
}

func (w *memWork) Commit(context.Context) error {
	if w.tx == nil {
		return nil
	}
	w.store.dataMu.Lock()
	w.store.data = w.tx
	w.store.dataMu.Unlock()
	w.tx = nil
	w.store.txMu.Unlock()

	return nil
}

func (w *memWork) Rollback(context.Context) error {
	if w.tx == nil {
		return nil
	}
	w.tx = nil
	w.store.txMu.Unlock()

	return nil
}

// do runs fn on the transaction copy, or on the committed data outside a transaction.
func (w *memWork) do(fn func(d *storeData) error) error {
	if w.tx != nil {
		return fn(w.tx)
	}
	w.store.dataMu.Lock()
	defer w.store.dataMu.Unlock()

	return fn(w.store.data)
}

func (w *memWork) OrderRepository() iorderrepo.IOrderRepository {
	return memOrders{w}
}

func (w *memWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return memItems{w}
}

func (w *memWork) ProductRepository() iproductrepo.IProductRepository {
	return memProducts{w}
}

func (w *memWork) ClientRepository() iclientrepo.IClientRepository {
	return memClients{w}
}

func (w *memWork) VehicleRepository() ivehiclerepo.IVehicleRepository {
	return memVehicles{w}
}

func (w *memWork) OrderStatusRepository() iorderstatusrepo.IOrderStatusRepository {
	return memStatuses{w}
}

func (w *memWork) SequenceRepository() isequencerepo.ISequenceRepository {
	return memSequences{w}
}

func (w *memWork) StatusHistoryRepository() istatushistoryrepo.IStatusHistoryRepository {
	return memHistory{w}
}

func notFound(what string, id int64) error {
	return fmt.Errorf("failed to get %s %d: %w", what, id, pgx.ErrNoRows)
}

type memOrders struct{ w *memWork }

func (r memOrders) Insert(_ context.Context, o order.Order) (id int64, err error) {
	err = r.w.do(func(d *storeData) error {
		for _, existing := range d.orders {
			if existing.OrderNumber == o.OrderNumber {
				return fmt.Errorf("duplicate order number %s", o.OrderNumber)
			}
		}
		d.nextOrderID++
		o.ID = d.nextOrderID
		o.OrderItems = nil
		d.orders[o.ID] = o
		id = o.ID

		return nil
	})

	return id, err
}

func (r memOrders) GetByID(_ context.Context, id int64) (o order.Order, err error) {
	err = r.w.do(func(d *storeData) error {
		found, ok := d.orders[id]
		if !ok || !found.Active {
			return notFound("order", id)
		}
		o = found

		return nil
	})

	return o, err
}

func (r memOrders) LockForUpdate(ctx context.Context, id int64, _ time.Duration) (order.Order, error) {
	if err := r.w.store.lockErr; err != nil {
		return order.Order{}, fmt.Errorf("failed to lock order %d: %w", id, err)
	}

	return r.GetByID(ctx, id)
}

func (r memOrders) Update(_ context.Context, o order.Order) error {
	return r.w.do(func(d *storeData) error {
		if _, ok := d.orders[o.ID]; !ok {
			return notFound("order", o.ID)
		}
		o.OrderItems = nil
		d.orders[o.ID] = o

		return nil
	})
}

func (r memOrders) UpdateTotals(_ context.Context, id int64, t totals.Totals, now time.Time) error {
	if err := r.w.store.updateTotalsErr; err != nil {
		return fmt.Errorf("failed to update totals of order %d: %w", id, err)
	}

	return r.w.do(func(d *storeData) error {
		o, ok := d.orders[id]
		if !ok {
			return notFound("order", id)
		}
		o.TotalAmount, o.DiscountAmount, o.FinalAmount = t.Total, t.Discount, t.Final
		o.UpdatedAt = now
		d.orders[id] = o

		return nil
	})
}

func (r memOrders) SoftDelete(_ context.Context, id int64, now time.Time) error {
	return r.w.do(func(d *storeData) error {
		o, ok := d.orders[id]
		if !ok || !o.Active {
			return notFound("order", id)
		}
		o.Active = false
		o.DeletedAt = &now
		o.UpdatedAt = now
		d.orders[id] = o

		return nil
	})
}

func (r memOrders) Query(_ context.Context, f *order.QueryOrdersModel) (out []order.Order, err error) {
	err = r.w.do(func(d *storeData) error {
		out = []order.Order{}
		for _, o := range d.orders {
			if !f.IncludeDeleted && !o.Active {
				continue
			}
			if len(f.ClientIds) > 0 && !slices.Contains(f.ClientIds, o.ClientID) {
				continue
			}
			if len(f.CenterIds) > 0 && !slices.Contains(f.CenterIds, o.CenterID) {
				continue
			}
			if len(f.StatusIds) > 0 && !slices.Contains(f.StatusIds, o.StatusID) {
				continue
			}
			out = append(out, o)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
				return out[i].ID > out[j].ID
			}

			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		})
		if f.Offset > 0 {
			out = out[min(f.Offset, len(out)):]
		}
		if f.Limit > 0 && len(out) > f.Limit {
			out = out[:f.Limit]
		}

		return nil
	})

	return out, err
}

func (r memOrders) Summarize(_ context.Context, centerID int64, from, to time.Time) (s dashboard.Summary, err error) {
	err = r.w.do(func(d *storeData) error {
		s = dashboard.Summary{From: from, To: to, ByStatus: map[string]int64{}}
		for _, o := range d.orders {
			if !o.Active || o.ScheduledAt.Before(from) || !o.ScheduledAt.Before(to) {
				continue
			}
			if centerID > 0 && o.CenterID != centerID {
				continue
			}
			s.Orders++
			s.ByStatus[string(o.Status)]++
			if o.Status == orderstatus.Completed {
				s.Revenue = s.Revenue.Add(o.FinalAmount)
			}
		}

		return nil
	})

	return s, err
}

type memItems struct{ w *memWork }

func sortedItems(d *storeData, keep func(orderitem.OrderItem) bool) []orderitem.OrderItem {
	out := []orderitem.OrderItem{}
	for _, it := range d.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func (r memItems) ListByOrder(_ context.Context, orderID int64) (out []orderitem.OrderItem, err error) {
	err = r.w.do(func(d *storeData) error {
		out = sortedItems(d, func(it orderitem.OrderItem) bool { return it.OrderID == orderID })

		return nil
	})

	return out, err
}

func (r memItems) BulkInsert(_ context.Context, items []orderitem.OrderItem) (out []orderitem.OrderItem, err error) {
	if err := r.w.store.itemInsertErr; err != nil {
		return nil, err
	}
	err = r.w.do(func(d *storeData) error {
		for _, it := range items {
			d.nextItemID++
			it.ID = d.nextItemID
			d.items[it.ID] = it
			out = append(out, it)
		}

		return nil
	})

	return out, err
}

func (r memItems) Update(_ context.Context, item orderitem.OrderItem) error {
	return r.w.do(func(d *storeData) error {
		existing, ok := d.items[item.ID]
		if !ok || existing.OrderID != item.OrderID {
			return notFound("order item", item.ID)
		}
		d.items[item.ID] = item

		return nil
	})
}

func (r memItems) DeleteByIDs(_ context.Context, orderID int64, ids []int64) error {
	return r.w.do(func(d *storeData) error {
		for _, id := range ids {
			if it, ok := d.items[id]; ok && it.OrderID == orderID {
				delete(d.items, id)
			}
		}

		return nil
	})
}

func (r memItems) DeleteByOrderID(_ context.Context, orderID int64) error {
	return r.w.do(func(d *storeData) error {
		maps.DeleteFunc(d.items, func(_ int64, it orderitem.OrderItem) bool { return it.OrderID == orderID })

		return nil
	})
}

func (r memItems) Query(_ context.Context, f *orderitem.QueryOrderItemsModel) (out []orderitem.OrderItem, err error) {
	err = r.w.do(func(d *storeData) error {
		out = sortedItems(d, func(it orderitem.OrderItem) bool {
			return len(f.OrderIds) == 0 || slices.Contains(f.OrderIds, it.OrderID)
		})

		return nil
	})

	return out, err
}

type memProducts struct{ w *memWork }

func (r memProducts) GetByIDs(_ context.Context, ids []int64) (out []product.Product, err error) {
	err = r.w.do(func(d *storeData) error {
		for _, id := range ids {
			if p, ok := d.products[id]; ok {
				out = append(out, p)
			}
		}

		return nil
	})

	return out, err
}

type memClients struct{ w *memWork }

func (r memClients) GetByID(_ context.Context, id int64) (c client.Client, err error) {
	err = r.w.do(func(d *storeData) error {
		found, ok := d.clients[id]
		if !ok {
			return notFound("client", id)
		}
		c = found

		return nil
	})

	return c, err
}

type memVehicles struct{ w *memWork }

func (r memVehicles) GetByID(_ context.Context, id int64) (v vehicle.Vehicle, err error) {
	err = r.w.do(func(d *storeData) error {
		found, ok := d.vehicles[id]
		if !ok {
			return notFound("vehicle", id)
		}
		v = found

		return nil
	})

	return v, err
}

func (r memVehicles) RecordService(_ context.Context, id int64, mileage int64, serviceDate time.Time) error {
	if err := r.w.store.vehicleSyncErr; err != nil {
		return err
	}

	return r.w.do(func(d *storeData) error {
		v, ok := d.vehicles[id]
		if !ok {
			return notFound("vehicle", id)
		}
		v.Mileage = max(v.Mileage, mileage)
		v.LastServiceDate = &serviceDate
		d.vehicles[id] = v

		return nil
	})
}

type memStatuses struct{ w *memWork }

func (r memStatuses) List(context.Context) (out []orderstatus.OrderStatus, err error) {
	err = r.w.do(func(d *storeData) error {
		out = slices.Clone(d.statuses)

		return nil
	})

	return out, err
}

func (r memStatuses) GetByID(_ context.Context, id int64) (orderstatus.OrderStatus, error) {
	return r.find(func(s orderstatus.OrderStatus) bool { return s.ID == id }, id)
}

func (r memStatuses) GetByName(_ context.Context, name orderstatus.Status) (orderstatus.OrderStatus, error) {
	return r.find(func(s orderstatus.OrderStatus) bool { return s.Name == name }, 0)
}

func (r memStatuses) find(match func(orderstatus.OrderStatus) bool, id int64) (s orderstatus.OrderStatus, err error) {
	err = r.w.do(func(d *storeData) error {
		idx := slices.IndexFunc(d.statuses, match)
		if idx < 0 {
			return notFound("status", id)
		}
		s = d.statuses[idx]

		return nil
	})

	return s, err
}

type memSequences struct{ w *memWork }

func (r memSequences) Next(_ context.Context, day time.Time) (value int64, err error) {
	err = r.w.do(func(d *storeData) error {
		key := day.Format("2006-01-02")
		d.sequences[key]++
		value = d.sequences[key]

		return nil
	})

	return value, err
}

type memHistory struct{ w *memWork }

func (r memHistory) Insert(_ context.Context, e statushistory.Entry) error {
	return r.w.do(func(d *storeData) error {
		e.ID = int64(len(d.history) + 1)
		d.history = append(d.history, e)

		return nil
	})
}

func (r memHistory) ListByOrder(_ context.Context, orderID int64) (out []statushistory.Entry, err error) {
	err = r.w.do(func(d *storeData) error {
		out = []statushistory.Entry{}
		for _, e := range d.history {
			if e.OrderID == orderID {
				out = append(out, e)
			}
		}

		return nil
	})

	return out, err
}

// callLog records cache and event calls in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.calls)
}

type recordingCache struct {
	mu        sync.Mutex
	log       *callLog
	values    map[string][]byte
	forgotten [][]string
}

func newRecordingCache(log *callLog) *recordingCache {
	return &recordingCache{log: log, values: map[string][]byte{}}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]

	return v, ok, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value

	return nil
}

func (c *recordingCache) Forget(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	c.forgotten = append(c.forgotten, keys)
	c.log.add("invalidate")

	return nil
}

func (c *recordingCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]

	return ok
}

func (c *recordingCache) forgottenKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for _, batch := range c.forgotten {
		out = append(out, batch...)
	}

	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	log    *callLog
	events []event.OrderEvent
}

func (e *recordingEvents) Publish(_ context.Context, events ...event.OrderEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range events {
		e.events = append(e.events, ev)
		e.log.add("publish:" + string(ev.Type))
	}

	return nil
}

func (e *recordingEvents) all() []event.OrderEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.events)
}
