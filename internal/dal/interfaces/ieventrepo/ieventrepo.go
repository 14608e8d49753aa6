package ieventrepo

import (
	"context"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/event"
)

// IEventRepository publishes order events after their write commits.
type IEventRepository interface {
	Publish(ctx context.Context, events ...event.OrderEvent) error
}
