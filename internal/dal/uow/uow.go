package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iclientrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iorderstatusrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/isequencerepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/istatushistoryrepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/interfaces/ivehiclerepo"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	clientrepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/client/postgres"
	orderrepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/orderitem/postgres"
	orderstatusrepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/orderstatus/postgres"
	productrepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/product/postgres"
	sequencerepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/sequence/postgres"
	statushistoryrepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/statushistory/postgres"
	vehiclerepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/vehicle/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type unitOfWork struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	orderRepo         iorderrepo.IOrderRepository
	orderItemRepo     iorderitemrepo.IOrderItemRepository
	productRepo       iproductrepo.IProductRepository
	clientRepo        iclientrepo.IClientRepository
	vehicleRepo       ivehiclerepo.IVehicleRepository
	orderStatusRepo   iorderstatusrepo.IOrderStatusRepository
	sequenceRepo      isequencerepo.ISequenceRepository
	statusHistoryRepo istatushistoryrepo.IStatusHistoryRepository
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return u.productRepo
}

func (u *unitOfWork) ClientRepository() iclientrepo.IClientRepository {
	return u.clientRepo
}

func (u *unitOfWork) VehicleRepository() ivehiclerepo.IVehicleRepository {
	return u.vehicleRepo
}

func (u *unitOfWork) OrderStatusRepository() iorderstatusrepo.IOrderStatusRepository {
	return u.orderStatusRepo
}

func (u *unitOfWork) SequenceRepository() isequencerepo.ISequenceRepository {
	return u.sequenceRepo
}

func (u *unitOfWork) StatusHistoryRepository() istatushistoryrepo.IStatusHistoryRepository {
	return u.statusHistoryRepo
}

// NewUnitOfWork creates a unit of work whose repositories use the pool until Begin is called.
func NewUnitOfWork(db *postgres.Client) *unitOfWork {
	u := &unitOfWork{pool: db.Pool()}
	u.bind(db.Pool())

	return u
}

func (u *unitOfWork) bind(conn postgres.GenericConn) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(conn)
	u.productRepo = productrepo.NewPostgresProductRepository(conn)
	u.clientRepo = clientrepo.NewPostgresClientRepository(conn)
	u.vehicleRepo = vehiclerepo.NewPostgresVehicleRepository(conn)
	u.orderStatusRepo = orderstatusrepo.NewPostgresOrderStatusRepository(conn)
	u.sequenceRepo = sequencerepo.NewPostgresSequenceRepository(conn)
	u.statusHistoryRepo = statushistoryrepo.NewPostgresStatusHistoryRepository(conn)
}

// Begin opens a read-committed transaction and rebinds every repository to it.
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errors.New("transaction already started")
	}

	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	defer u.reset()

	return u.tx.Commit(ctx)
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	defer u.reset()

	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}

	return nil
}

func (u *unitOfWork) reset() {
	u.tx = nil
	u.bind(u.pool)
}
