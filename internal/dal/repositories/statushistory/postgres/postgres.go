package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/statushistory"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresStatusHistoryRepository stores the status audit trail.
type PostgresStatusHistoryRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresStatusHistoryRepository creates a new status history repository.
func NewPostgresStatusHistoryRepository(conn postgres.GenericConn) *PostgresStatusHistoryRepository {
	return &PostgresStatusHistoryRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert appends one history entry.
func (r *PostgresStatusHistoryRepository) Insert(ctx context.Context, entry statushistory.Entry) error {
	sql, args, err := r.sb.Insert("order_status_history").
		Columns("order_id", "from_status", "to_status", "notes", "created_at").
		Values(entry.OrderID, entry.FromStatus.String(), entry.ToStatus.String(), entry.Notes, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert status history for order %d: %w", entry.OrderID, err)
	}

	return nil
}

// ListByOrder returns the history of an order, oldest first.
func (r *PostgresStatusHistoryRepository) ListByOrder(ctx context.Context, orderID int64) ([]statushistory.Entry, error) {
	sql, args, err := r.sb.
		Select("id", "order_id", "from_status", "to_status", "notes", "created_at").
		From("order_status_history").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	result := []statushistory.Entry{}
	for rows.Next() {
		var (
			e         statushistory.Entry
			from, to  string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &from, &to, &e.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		e.FromStatus = orderstatus.Status(from)
		e.ToStatus = orderstatus.Status(to)
		e.CreatedAt = createdAt.Time
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
