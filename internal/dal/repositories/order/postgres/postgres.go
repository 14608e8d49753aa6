package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/dashboard"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/paymentmethod"
	"github.com/corray333/backend-labs/serviceorder/internal/service/totals"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id             int64
	OrderNumber    string
	ClientId       int64
	VehicleId      int64
	CenterId       int64
	TechnicianId   pgtype.Int8
	AttendantId    pgtype.Int8
	StatusId       int64
	StatusName     string
	PaymentMethod  string
	ScheduledAt    pgtype.Timestamptz
	StartedAt      pgtype.Timestamptz
	CompletedAt    pgtype.Timestamptz
	Mileage        pgtype.Int8
	TotalAmount    pgtype.Numeric
	DiscountAmount pgtype.Numeric
	FinalAmount    pgtype.Numeric
	Notes          string
	Active         bool
	DeletedAt      pgtype.Timestamptz
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

// scanTargets lists the fields in orderColumns order.
func (o *OrderDal) scanTargets() []any {
	return []any{
		&o.Id,
		&o.OrderNumber,
		&o.ClientId,
		&o.VehicleId,
		&o.CenterId,
		&o.TechnicianId,
		&o.AttendantId,
		&o.StatusId,
		&o.StatusName,
		&o.PaymentMethod,
		&o.ScheduledAt,
		&o.StartedAt,
		&o.CompletedAt,
		&o.Mileage,
		&o.TotalAmount,
		&o.DiscountAmount,
		&o.FinalAmount,
		&o.Notes,
		&o.Active,
		&o.DeletedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	pm, err := paymentmethod.Parse(o.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", o.Id, err)
	}

	return &order.Order{
		ID:             o.Id,
		OrderNumber:    o.OrderNumber,
		ClientID:       o.ClientId,
		VehicleID:      o.VehicleId,
		CenterID:       o.CenterId,
		TechnicianID:   postgres.Int8Ptr(o.TechnicianId),
		AttendantID:    postgres.Int8Ptr(o.AttendantId),
		StatusID:       o.StatusId,
		Status:         orderstatus.Status(o.StatusName),
		PaymentMethod:  pm,
		ScheduledAt:    o.ScheduledAt.Time,
		StartedAt:      postgres.TimePtr(o.StartedAt),
		CompletedAt:    postgres.TimePtr(o.CompletedAt),
		Mileage:        postgres.Int8Ptr(o.Mileage),
		TotalAmount:    postgres.Decimal(o.TotalAmount),
		DiscountAmount: postgres.Decimal(o.DiscountAmount),
		FinalAmount:    postgres.Decimal(o.FinalAmount),
		Notes:          o.Notes,
		Active:         o.Active,
		DeletedAt:      postgres.TimePtr(o.DeletedAt),
		CreatedAt:      o.CreatedAt.Time,
		UpdatedAt:      o.UpdatedAt.Time,
		OrderItems:     []orderitem.OrderItem{}, // Will be populated separately
	}, nil
}

var orderColumns = []string{
	"o.id",
	"o.order_number",
	"o.client_id",
	"o.vehicle_id",
	"o.center_id",
	"o.technician_id",
	"o.attendant_id",
	"o.status_id",
	"s.name",
	"o.payment_method",
	"o.scheduled_at",
	"o.started_at",
	"o.completed_at",
	"o.mileage",
	"o.total_amount",
	"o.discount_amount",
	"o.final_amount",
	"o.notes",
	"o.active",
	"o.deleted_at",
	"o.created_at",
	"o.updated_at",
}

// PostgresOrderRepository represents a Postgres service order repository.
type PostgresOrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres service order repository.
func NewPostgresOrderRepository(conn postgres.GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostgresOrderRepository) selectOrders() sq.SelectBuilder {
	return r.sb.
		Select(orderColumns...).
		From("service_orders o").
		Join("order_statuses s ON s.id = o.status_id")
}

func (r *PostgresOrderRepository) queryOne(ctx context.Context, query sq.SelectBuilder) (order.Order, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		return order.Order{}, err
	}

	model, err := dal.ToModel()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	return *model, nil
}

// Insert stores a new order and returns its id.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (int64, error) {
	sql, args, err := r.sb.Insert("service_orders").
		Columns(
			"order_number",
			"client_id",
			"vehicle_id",
			"center_id",
			"technician_id",
			"attendant_id",
			"status_id",
			"payment_method",
			"scheduled_at",
			"started_at",
			"completed_at",
			"mileage",
			"total_amount",
			"discount_amount",
			"final_amount",
			"notes",
			"active",
			"created_at",
			"updated_at",
		).
		Values(
			o.OrderNumber,
			o.ClientID,
			o.VehicleID,
			o.CenterID,
			postgres.Int8(o.TechnicianID),
			postgres.Int8(o.AttendantID),
			o.StatusID,
			o.PaymentMethod.String(),
			o.ScheduledAt,
			postgres.Timestamptz(o.StartedAt),
			postgres.Timestamptz(o.CompletedAt),
			postgres.Int8(o.Mileage),
			postgres.Numeric(o.TotalAmount),
			postgres.Numeric(o.DiscountAmount),
			postgres.Numeric(o.FinalAmount),
			o.Notes,
			true,
			o.CreatedAt,
			o.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert query: %w", err)
	}

	var id int64
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	return id, nil
}

// GetByID loads a live order. It returns pgx.ErrNoRows for missing or soft-deleted orders.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (order.Order, error) {
	o, err := r.queryOne(ctx, r.selectOrders().Where(sq.Eq{"o.id": id, "o.active": true}))
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	return o, nil
}

// LockForUpdate loads a live order and holds its row lock until the transaction ends.
// Waiting longer than the configured lock timeout fails with SQLSTATE 55P03.
func (r *PostgresOrderRepository) LockForUpdate(ctx context.Context, id int64, timeout time.Duration) (order.Order, error) {
	if timeout > 0 {
		if _, err := r.conn.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)",
			fmt.Sprintf("%dms", timeout.Milliseconds())); err != nil {
			return order.Order{}, fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	o, err := r.queryOne(ctx, r.selectOrders().
		Where(sq.Eq{"o.id": id, "o.active": true}).
		Suffix("FOR UPDATE OF o"))
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to lock order %d: %w", id, err)
	}

	return o, nil
}

// Update persists the mutable header, status and amount columns.
func (r *PostgresOrderRepository) Update(ctx context.Context, o order.Order) error {
	sql, args, err := r.sb.Update("service_orders").
		Set("technician_id", postgres.Int8(o.TechnicianID)).
		Set("attendant_id", postgres.Int8(o.AttendantID)).
		Set("status_id", o.StatusID).
		Set("payment_method", o.PaymentMethod.String()).
		Set("scheduled_at", o.ScheduledAt).
		Set("started_at", postgres.Timestamptz(o.StartedAt)).
		Set("completed_at", postgres.Timestamptz(o.CompletedAt)).
		Set("mileage", postgres.Int8(o.Mileage)).
		Set("total_amount", postgres.Numeric(o.TotalAmount)).
		Set("discount_amount", postgres.Numeric(o.DiscountAmount)).
		Set("final_amount", postgres.Numeric(o.FinalAmount)).
		Set("notes", o.Notes).
		Set("updated_at", o.UpdatedAt).
		Where(sq.Eq{"id": o.ID, "active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	return r.execOne(ctx, sql, args, "update order", o.ID)
}

// UpdateTotals persists recomputed amounts.
func (r *PostgresOrderRepository) UpdateTotals(ctx context.Context, id int64, t totals.Totals, now time.Time) error {
	sql, args, err := r.sb.Update("service_orders").
		Set("total_amount", postgres.Numeric(t.Total)).
		Set("discount_amount", postgres.Numeric(t.Discount)).
		Set("final_amount", postgres.Numeric(t.Final)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	return r.execOne(ctx, sql, args, "update order totals", id)
}

// SoftDelete marks an order inactive. Items are kept.
func (r *PostgresOrderRepository) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	sql, args, err := r.sb.Update("service_orders").
		Set("active", false).
		Set("deleted_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	return r.execOne(ctx, sql, args, "soft delete order", id)
}

func (r *PostgresOrderRepository) execOne(ctx context.Context, sql string, args []any, op string, id int64) error {
	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s %d: %w", op, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to %s %d: %w", op, id, pgx.ErrNoRows)
	}

	return nil
}

// Query retrieves orders based on filter criteria, newest schedule first.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	query := r.selectOrders().OrderBy("o.scheduled_at DESC", "o.id DESC")

	if !filter.IncludeDeleted {
		query = query.Where(sq.Eq{"o.active": true})
	}

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"o.id": filter.Ids})
	}

	if len(filter.ClientIds) > 0 {
		query = query.Where(sq.Eq{"o.client_id": filter.ClientIds})
	}

	if len(filter.CenterIds) > 0 {
		query = query.Where(sq.Eq{"o.center_id": filter.CenterIds})
	}

	if len(filter.StatusIds) > 0 {
		query = query.Where(sq.Eq{"o.status_id": filter.StatusIds})
	}

	if filter.ScheduledFrom != nil {
		query = query.Where(sq.GtOrEq{"o.scheduled_at": *filter.ScheduledFrom})
	}

	if filter.ScheduledTo != nil {
		query = query.Where(sq.Lt{"o.scheduled_at": *filter.ScheduledTo})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := []order.Order{}
	for rows.Next() {
		var dal OrderDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Summarize aggregates live orders scheduled in [from, to). centerID 0 covers every center.
// Revenue counts completed orders only.
func (r *PostgresOrderRepository) Summarize(
	ctx context.Context,
	centerID int64,
	from, to time.Time,
) (dashboard.Summary, error) {
	query := r.sb.
		Select(
			"s.name",
			"COUNT(*)",
			"COALESCE(SUM(o.final_amount) FILTER (WHERE s.name = 'completed'), 0)",
		).
		From("service_orders o").
		Join("order_statuses s ON s.id = o.status_id").
		Where(sq.Eq{"o.active": true}).
		Where(sq.GtOrEq{"o.scheduled_at": from}).
		Where(sq.Lt{"o.scheduled_at": to}).
		GroupBy("s.name")

	if centerID > 0 {
		query = query.Where(sq.Eq{"o.center_id": centerID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return dashboard.Summary{}, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return dashboard.Summary{}, fmt.Errorf("failed to summarize orders: %w", err)
	}
	defer rows.Close()

	summary := dashboard.Summary{
		From:     from,
		To:       to,
		ByStatus: map[string]int64{},
	}
	for rows.Next() {
		var (
			status  string
			count   int64
			revenue pgtype.Numeric
		)
		if err := rows.Scan(&status, &count, &revenue); err != nil {
			return dashboard.Summary{}, fmt.Errorf("failed to scan summary: %w", err)
		}
		summary.ByStatus[status] = count
		summary.Orders += count
		summary.Revenue = summary.Revenue.Add(postgres.Decimal(revenue))
	}

	if err = rows.Err(); err != nil {
		return dashboard.Summary{}, fmt.Errorf("rows iteration error: %w", err)
	}

	return summary, nil
}
