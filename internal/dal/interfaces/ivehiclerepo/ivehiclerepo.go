package ivehiclerepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/vehicle"
)

// IVehicleRepository reads vehicles and records completed services on them.
type IVehicleRepository interface {
	GetByID(ctx context.Context, id int64) (vehicle.Vehicle, error)
	RecordService(ctx context.Context, id int64, mileage int64, serviceDate time.Time) error
}
