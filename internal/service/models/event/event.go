package event

import (
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
)

// Type names an order domain event; it doubles as the AMQP routing key.
type Type string

const (
	OrderCreated         Type = "order.created"
	OrderUpdated         Type = "order.updated"
	OrderStatusChanged   Type = "order.status_changed"
	OrderItemsReconciled Type = "order.items_reconciled"
	OrderDeleted         Type = "order.deleted"
)

// OrderEvent is emitted after an order write commits.
type OrderEvent struct {
	ID             string             `json:"id"`
	Type           Type               `json:"type"`
	OrderID        int64              `json:"orderId"`
	OrderNumber    string             `json:"orderNumber"`
	PreviousStatus orderstatus.Status `json:"previousStatus,omitempty"`
	CurrentStatus  orderstatus.Status `json:"currentStatus"`
	OccurredAt     time.Time          `json:"occurredAt"`
	Order          *order.Order       `json:"order,omitempty"`
}
