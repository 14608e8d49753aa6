package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iclientrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/ieventrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderstatusrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/isequencerepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/istatushistoryrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/ivehiclerepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/uow"
	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/corray333/backend-labs/serviceorder/internal/service/cacheinv"
	"github.com/corray333/backend-labs/serviceorder/internal/service/cacheport"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/event"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/numbergen"
	"github.com/corray333/backend-labs/serviceorder/internal/service/reconciler"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultCacheTTL  = 5 * time.Minute
	defaultListLimit = 100
)

// OrderService is the only entry point for service order writes. It owns the
// transaction boundary and runs cache invalidation and event publishing after commit.
type OrderService struct {
	pgClient    *postgres.Client
	newWork     func() unitOfWork
	cache       cacheport.Cache
	invalidator *cacheinv.Invalidator
	events      ieventrepo.IEventRepository
	numbers     *numbergen.Generator
	reconciler  *reconciler.Reconciler
	clock       func() time.Time
	lockTimeout time.Duration
	cacheTTL    time.Duration
	location    *time.Location
}

func (s *OrderService) newUOW() unitOfWork {
	if s.newWork != nil {
		return s.newWork()
	}

	return uow.NewUnitOfWork(s.pgClient)
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	ProductRepository() iproductrepo.IProductRepository
	ClientRepository() iclientrepo.IClientRepository
	VehicleRepository() ivehiclerepo.IVehicleRepository
	OrderStatusRepository() iorderstatusrepo.IOrderStatusRepository
	SequenceRepository() isequencerepo.ISequenceRepository
	StatusHistoryRepository() istatushistoryrepo.IStatusHistoryRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		clock:       time.Now,
		lockTimeout: 3 * time.Second,
		cacheTTL:    defaultCacheTTL,
		location:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pgClient == nil && s.newWork == nil {
		panic("ordersvc: a postgres client or unit of work factory is required")
	}
	if s.numbers == nil {
		s.numbers = numbergen.New(numbergen.WithLocation(s.location))
	}
	s.reconciler = reconciler.New(s.clock)
	s.invalidator = cacheinv.New(s.cache, s.location)

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithUnitOfWorkFactory replaces the Postgres unit of work.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newWork = factory
	}
}

// WithCache sets the read-through cache that writes invalidate.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCache(cache cacheport.Cache, ttl time.Duration) option {
	return func(s *OrderService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithEventRepository sets where order events are published.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEventRepository(events ieventrepo.IEventRepository) option {
	return func(s *OrderService) {
		s.events = events
	}
}

// WithNumberGenerator overrides the order number format.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNumberGenerator(g *numbergen.Generator) option {
	return func(s *OrderService) {
		s.numbers = g
	}
}

// WithLocation sets the timezone of order number days and dashboard buckets.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocation(loc *time.Location) option {
	return func(s *OrderService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLockTimeout bounds how long a write waits for a concurrent writer on the same order.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLockTimeout(d time.Duration) option {
	return func(s *OrderService) {
		s.lockTimeout = d
	}
}

// WithClock replaces time.Now.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(clock func() time.Time) option {
	return func(s *OrderService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func (s *OrderService) now() time.Time {
	return s.clock().UTC()
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("service").Start(ctx, "OrderService."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// inTx runs fn inside one transaction. Any error rolls back every write fn made.
func (s *OrderService) inTx(ctx context.Context, fn func(work unitOfWork) error) error {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(work); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		if postgres.IsConflict(err) {
			return apperrors.ConcurrencyConflict(err, "transaction lost a concurrent update")
		}

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// mapRepositoryError turns driver-level outcomes into service errors.
func mapRepositoryError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	if postgres.IsNotFound(err) {
		return apperrors.NotFound("%s %d not found", entity, id)
	}
	switch {
	case postgres.IsConflict(err):
		return apperrors.ConcurrencyConflict(err, "%s %d is being modified concurrently", entity, id)
	case postgres.IsUniqueViolation(err):
		return apperrors.ConcurrencyConflict(err, "%s %d collided with a concurrent write", entity, id)
	case postgres.IsForeignKeyViolation(err):
		return apperrors.NotFound("%s %d references a record that no longer exists", entity, id)
	case postgres.IsCheckViolation(err):
		return apperrors.Validation("%s %d has values outside the allowed range", entity, id)
	}

	return err
}

// lockOrder takes the per-order write lock.
func (s *OrderService) lockOrder(ctx context.Context, work unitOfWork, orderID int64) (order.Order, error) {
	o, err := work.OrderRepository().LockForUpdate(ctx, orderID, s.lockTimeout)
	if err != nil {
		return order.Order{}, mapRepositoryError(err, "order", orderID)
	}

	return o, nil
}

// loadOrder reads an order with its items through work.
func loadOrder(ctx context.Context, work unitOfWork, orderID int64) (order.Order, error) {
	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return order.Order{}, mapRepositoryError(err, "order", orderID)
	}

	items, err := work.OrderItemRepository().ListByOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to load items of order %d: %w", orderID, err)
	}
	o.OrderItems = items

	return o, nil
}

// afterCommit invalidates derived caches and then publishes the event. Neither step can
// fail the request because the write is already durable.
func (s *OrderService) afterCommit(
	ctx context.Context,
	typ event.Type,
	previous orderstatus.Status,
	o order.Order,
	snapshots ...order.Snapshot,
) {
	ctx = context.WithoutCancel(ctx)

	s.invalidator.Invalidate(ctx, snapshots...)

	if s.events == nil {
		return
	}

	ev := event.OrderEvent{
		ID:             uuid.NewString(),
		Type:           typ,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		PreviousStatus: previous,
		CurrentStatus:  o.Status,
		OccurredAt:     s.now(),
	}
	if typ != event.OrderDeleted {
		snapshot := o
		ev.Order = &snapshot
	}

	if err := s.events.Publish(ctx, ev); err != nil {
		slog.Error("Failed to publish order event",
			"event_type", typ,
			"order_id", o.ID,
			"error", err,
		)
	}
}
