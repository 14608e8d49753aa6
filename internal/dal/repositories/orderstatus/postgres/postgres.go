package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
)

// PostgresOrderStatusRepository reads the status reference table.
type PostgresOrderStatusRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderStatusRepository creates a new Postgres status repository.
func NewPostgresOrderStatusRepository(conn postgres.GenericConn) *PostgresOrderStatusRepository {
	return &PostgresOrderStatusRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// List returns every status in display order.
func (r *PostgresOrderStatusRepository) List(ctx context.Context) ([]orderstatus.OrderStatus, error) {
	return r.query(ctx, r.sb.Select("id", "name", "label", "sort_order").From("order_statuses"))
}

// GetByID returns one status or pgx.ErrNoRows.
func (r *PostgresOrderStatusRepository) GetByID(ctx context.Context, id int64) (orderstatus.OrderStatus, error) {
	return r.one(ctx, sq.Eq{"id": id})
}

// GetByName returns one status or pgx.ErrNoRows.
func (r *PostgresOrderStatusRepository) GetByName(ctx context.Context, name orderstatus.Status) (orderstatus.OrderStatus, error) {
	return r.one(ctx, sq.Eq{"name": name.String()})
}

func (r *PostgresOrderStatusRepository) one(ctx context.Context, where sq.Eq) (orderstatus.OrderStatus, error) {
	sql, args, err := r.sb.
		Select("id", "name", "label", "sort_order").
		From("order_statuses").
		Where(where).
		ToSql()
	if err != nil {
		return orderstatus.OrderStatus{}, fmt.Errorf("failed to build query: %w", err)
	}

	var (
		s         orderstatus.OrderStatus
		name      string
		sortOrder int32
	)
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&s.ID, &name, &s.Label, &sortOrder); err != nil {
		return orderstatus.OrderStatus{}, fmt.Errorf("failed to get order status: %w", err)
	}
	s.Name = orderstatus.Status(name)
	s.SortOrder = int(sortOrder)

	return s, nil
}

func (r *PostgresOrderStatusRepository) query(ctx context.Context, query sq.SelectBuilder) ([]orderstatus.OrderStatus, error) {
	sql, args, err := query.OrderBy("sort_order", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order statuses: %w", err)
	}
	defer rows.Close()

	result := []orderstatus.OrderStatus{}
	for rows.Next() {
		var (
			s         orderstatus.OrderStatus
			name      string
			sortOrder int32
		)
		if err := rows.Scan(&s.ID, &name, &s.Label, &sortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan order status: %w", err)
		}
		s.Name = orderstatus.Status(name)
		s.SortOrder = int(sortOrder)
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
