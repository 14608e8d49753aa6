package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/vehicle"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresVehicleRepository reads vehicles and records service visits on them.
type PostgresVehicleRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresVehicleRepository creates a new Postgres vehicle repository.
func NewPostgresVehicleRepository(conn postgres.GenericConn) *PostgresVehicleRepository {
	return &PostgresVehicleRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// GetByID returns a vehicle or pgx.ErrNoRows.
func (r *PostgresVehicleRepository) GetByID(ctx context.Context, id int64) (vehicle.Vehicle, error) {
	sql, args, err := r.sb.
		Select("id", "client_id", "plate", "brand", "model", "mileage", "last_service_date").
		From("vehicles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return vehicle.Vehicle{}, fmt.Errorf("failed to build query: %w", err)
	}

	var (
		v           vehicle.Vehicle
		lastService pgtype.Date
	)
	err = r.conn.QueryRow(ctx, sql, args...).
		Scan(&v.ID, &v.ClientID, &v.Plate, &v.Brand, &v.Model, &v.Mileage, &lastService)
	if err != nil {
		return vehicle.Vehicle{}, fmt.Errorf("failed to get vehicle %d: %w", id, err)
	}
	v.LastServiceDate = postgres.DatePtr(lastService)

	return v, nil
}

// RecordService raises the odometer to mileage (never lowering it) and stamps the service date.
func (r *PostgresVehicleRepository) RecordService(
	ctx context.Context,
	id int64,
	mileage int64,
	serviceDate time.Time,
) error {
	sql, args, err := r.sb.Update("vehicles").
		Set("mileage", sq.Expr("GREATEST(mileage, ?)", mileage)).
		Set("last_service_date", pgtype.Date{Time: serviceDate, Valid: true}).
		Set("updated_at", serviceDate).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to record service on vehicle %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to record service on vehicle %d: %w", id, pgx.ErrNoRows)
	}

	return nil
}
