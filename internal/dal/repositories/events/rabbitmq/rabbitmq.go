package rabbitmqrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/event"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/outbox"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
)

const contentTypeJSON = "application/json"

type publisher interface {
	Publish(exchange, routingKey string, msg amqp.Publishing) error
}

type outboxRepository interface {
	Insert(ctx context.Context, msg outbox.OutboxMessage) error
}

// EventRabbitMQRepository publishes order events to a topic exchange and parks
// undeliverable ones in the outbox for the retry worker.
type EventRabbitMQRepository struct {
	client     publisher
	outbox     outboxRepository
	exchange   string
	maxRetries int
	now        func() time.Time
}

// NewEventRabbitMQRepository creates an event publisher for exchange.
func NewEventRabbitMQRepository(
	client publisher,
	outboxRepo outboxRepository,
	exchange string,
	maxRetries int,
) *EventRabbitMQRepository {
	if maxRetries <= 0 {
		maxRetries = 10
	}

	return &EventRabbitMQRepository{
		client:     client,
		outbox:     outboxRepo,
		exchange:   exchange,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Publish delivers events concurrently. An event that cannot be published is written to the
// outbox; an error is returned only when an event could be neither published nor stored.
func (r *EventRabbitMQRepository) Publish(ctx context.Context, events ...event.OrderEvent) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	for _, ev := range events {
		g.Go(func() error {
			return r.publishOne(ctx, ev)
		})
	}

	return g.Wait()
}

func (r *EventRabbitMQRepository) publishOne(ctx context.Context, ev event.OrderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}

	pubErr := r.client.Publish(r.exchange, string(ev.Type), amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         payload,
	})
	if pubErr == nil {
		return nil
	}

	slog.Warn("Failed to publish order event, storing in outbox",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"order_id", ev.OrderID,
		"error", pubErr,
	)

	now := r.now()
	msg := outbox.OutboxMessage{
		MessageID:    ev.ID,
		ExchangeName: r.exchange,
		RoutingKey:   string(ev.Type),
		Payload:      payload,
		ContentType:  contentTypeJSON,
		MaxRetries:   r.maxRetries,
		LastError:    pubErr.Error(),
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}
	if err := r.outbox.Insert(ctx, msg); err != nil {
		return errors.Join(pubErr, fmt.Errorf("failed to store event %s in outbox: %w", ev.ID, err))
	}

	return nil
}
