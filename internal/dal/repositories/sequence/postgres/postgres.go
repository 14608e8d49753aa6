package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresSequenceRepository allocates per-day order number sequence values.
type PostgresSequenceRepository struct {
	conn postgres.GenericConn
}

// NewPostgresSequenceRepository creates a new sequence repository.
func NewPostgresSequenceRepository(conn postgres.GenericConn) *PostgresSequenceRepository {
	return &PostgresSequenceRepository{conn: conn}
}

// Next atomically increments and returns the counter of day. The upsert takes a row lock
// held until the surrounding transaction ends, so concurrent creates queue instead of colliding.
func (r *PostgresSequenceRepository) Next(ctx context.Context, day time.Time) (int64, error) {
	sql := `
		INSERT INTO order_number_sequences (day, value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = order_number_sequences.value + 1
		RETURNING value
	`

	var value int64
	err := r.conn.QueryRow(ctx, sql, pgtype.Date{Time: day, Valid: true}).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to increment order number sequence: %w", err)
	}

	return value, nil
}
