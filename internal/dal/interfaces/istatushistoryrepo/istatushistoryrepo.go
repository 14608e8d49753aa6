package istatushistoryrepo

import (
	"context"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/statushistory"
)

// IStatusHistoryRepository stores the status audit trail.
type IStatusHistoryRepository interface {
	Insert(ctx context.Context, entry statushistory.Entry) error
	ListByOrder(ctx context.Context, orderID int64) ([]statushistory.Entry, error)
}
