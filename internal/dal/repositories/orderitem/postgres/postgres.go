package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	Id              int64
	OrderId         int64
	ProductId       int64
	Quantity        int32
	UnitPrice       pgtype.Numeric
	DiscountPercent pgtype.Numeric
	TotalPrice      pgtype.Numeric
	Notes           string
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

func (oi *OrderItemDal) scanTargets() []any {
	return []any{
		&oi.Id,
		&oi.OrderId,
		&oi.ProductId,
		&oi.Quantity,
		&oi.UnitPrice,
		&oi.DiscountPercent,
		&oi.TotalPrice,
		&oi.Notes,
		&oi.CreatedAt,
		&oi.UpdatedAt,
	}
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ID:              oi.Id,
		OrderID:         oi.OrderId,
		ProductID:       oi.ProductId,
		Quantity:        int(oi.Quantity),
		UnitPrice:       postgres.Decimal(oi.UnitPrice),
		DiscountPercent: postgres.Decimal(oi.DiscountPercent),
		TotalPrice:      postgres.Decimal(oi.TotalPrice),
		Notes:           oi.Notes,
		CreatedAt:       oi.CreatedAt.Time,
		UpdatedAt:       oi.UpdatedAt.Time,
	}
}

var itemColumns = []string{
	"id",
	"order_id",
	"product_id",
	"quantity",
	"unit_price",
	"discount_percent",
	"total_price",
	"notes",
	"created_at",
	"updated_at",
}

// PostgresOrderItemRepository represents a Postgres order item repository.
type PostgresOrderItemRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderItemRepository creates a new Postgres order item repository.
func NewPostgresOrderItemRepository(conn postgres.GenericConn) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BulkInsert inserts multiple order items and returns them with IDs.
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	orderItems []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(orderItems) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	sql := `
		INSERT INTO service_order_items (
			order_id,
			product_id,
			quantity,
			unit_price,
			discount_percent,
			total_price,
			notes,
			created_at,
			updated_at
		)
		SELECT
			order_id,
			product_id,
			quantity,
			unit_price,
			discount_percent,
			total_price,
			notes,
			created_at,
			updated_at
		FROM unnest(
			$1::bigint[], $2::bigint[], $3::int[], $4::numeric[], $5::numeric[],
			$6::numeric[], $7::text[], $8::timestamptz[], $9::timestamptz[]
		) AS t(order_id, product_id, quantity, unit_price, discount_percent, total_price, notes, created_at, updated_at)
		RETURNING id, order_id, product_id, quantity, unit_price, discount_percent, total_price, notes, created_at, updated_at
	`

	orderIds := make([]int64, len(orderItems))
	productIds := make([]int64, len(orderItems))
	quantities := make([]int32, len(orderItems))
	unitPrices := make([]pgtype.Numeric, len(orderItems))
	discounts := make([]pgtype.Numeric, len(orderItems))
	totalPrices := make([]pgtype.Numeric, len(orderItems))
	notes := make([]string, len(orderItems))
	createdAts := make([]time.Time, len(orderItems))
	updatedAts := make([]time.Time, len(orderItems))

	for i, oi := range orderItems {
		orderIds[i] = oi.OrderID
		productIds[i] = oi.ProductID
		quantities[i] = int32(oi.Quantity)
		unitPrices[i] = postgres.Numeric(oi.UnitPrice)
		discounts[i] = postgres.Numeric(oi.DiscountPercent)
		totalPrices[i] = postgres.Numeric(oi.TotalPrice)
		notes[i] = oi.Notes
		createdAts[i] = oi.CreatedAt
		updatedAts[i] = oi.UpdatedAt
	}

	rows, err := r.conn.Query(ctx, sql,
		orderIds,
		productIds,
		quantities,
		unitPrices,
		discounts,
		totalPrices,
		notes,
		createdAts,
		updatedAts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}

	return collectItems(rows)
}

// ListByOrder returns the items of an order in insertion order.
func (r *PostgresOrderItemRepository) ListByOrder(ctx context.Context, orderID int64) ([]orderitem.OrderItem, error) {
	return r.Query(ctx, &orderitem.QueryOrderItemsModel{OrderIds: []int64{orderID}})
}

// Update overwrites the editable columns of one item of orderID.
func (r *PostgresOrderItemRepository) Update(ctx context.Context, item orderitem.OrderItem) error {
	sql, args, err := r.sb.Update("service_order_items").
		Set("product_id", item.ProductID).
		Set("quantity", int32(item.Quantity)).
		Set("unit_price", postgres.Numeric(item.UnitPrice)).
		Set("discount_percent", postgres.Numeric(item.DiscountPercent)).
		Set("total_price", postgres.Numeric(item.TotalPrice)).
		Set("notes", item.Notes).
		Set("updated_at", item.UpdatedAt).
		Where(sq.Eq{"id": item.ID, "order_id": item.OrderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update order item %d: %w", item.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update order item %d: %w", item.ID, pgx.ErrNoRows)
	}

	return nil
}

// DeleteByIDs removes the given items of orderID.
func (r *PostgresOrderItemRepository) DeleteByIDs(ctx context.Context, orderID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.sb.Delete("service_order_items").
		Where(sq.Eq{"order_id": orderID, "id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}

	return nil
}

// DeleteByOrderID removes every item of orderID.
func (r *PostgresOrderItemRepository) DeleteByOrderID(ctx context.Context, orderID int64) error {
	sql, args, err := r.sb.Delete("service_order_items").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete order items of %d: %w", orderID, err)
	}

	return nil
}

// Query retrieves order items based on filter criteria.
func (r *PostgresOrderItemRepository) Query(
	ctx context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]orderitem.OrderItem, error) {
	query := r.sb.
		Select(itemColumns...).
		From("service_order_items").
		OrderBy("order_id", "id")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.OrderIds) > 0 {
		query = query.Where(sq.Eq{"order_id": filter.OrderIds})
	}

	if len(filter.ProductIds) > 0 {
		query = query.Where(sq.Eq{"product_id": filter.ProductIds})
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
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]orderitem.OrderItem, error) {
	defer rows.Close()

	result := []orderitem.OrderItem{}
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
