package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/client"
)

// PostgresClientRepository reads clients.
type PostgresClientRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresClientRepository creates a new Postgres client repository.
func NewPostgresClientRepository(conn postgres.GenericConn) *PostgresClientRepository {
	return &PostgresClientRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// GetByID returns a client or pgx.ErrNoRows.
func (r *PostgresClientRepository) GetByID(ctx context.Context, id int64) (client.Client, error) {
	sql, args, err := r.sb.
		Select("id", "name", "phone", "active").
		From("clients").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return client.Client{}, fmt.Errorf("failed to build query: %w", err)
	}

	var c client.Client
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.Name, &c.Phone, &c.Active); err != nil {
		return client.Client{}, fmt.Errorf("failed to get client %d: %w", id, err)
	}

	return c, nil
}
