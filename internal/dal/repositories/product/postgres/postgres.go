package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/product"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresProductRepository reads the product catalogue.
type PostgresProductRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresProductRepository creates a new Postgres product repository.
func NewPostgresProductRepository(conn postgres.GenericConn) *PostgresProductRepository {
	return &PostgresProductRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// GetByIDs returns the products with the given ids. Missing ids are simply absent.
func (r *PostgresProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	if len(ids) == 0 {
		return []product.Product{}, nil
	}

	sql, args, err := r.sb.
		Select("id", "name", "sku", "price", "stock", "active").
		From("products").
		Where(sq.Eq{"id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	result := []product.Product{}
	for rows.Next() {
		var (
			p     product.Product
			price pgtype.Numeric
			stock int32
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &price, &stock, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Price = postgres.Decimal(price)
		p.Stock = int(stock)
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
