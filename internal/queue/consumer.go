package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/index"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
)

// Consumer pulls domain events off the durable index queue and dispatches
// them to the indexing layer. It runs a reconnect loop so a broker restart
// never takes the service down; poison messages are rejected without requeue
// to avoid tight redelivery loops.
type Consumer struct {
	url   string
	queue string
	ix    *index.Indexer
	log   *logger.Logger
}

// NewConsumer builds a Consumer.
func NewConsumer(url, queue string, ix *index.Indexer, log *logger.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, ix: ix, log: log}
}

// Run consumes until ctx is cancelled. The broker connection is re-dialed
// with capped exponential backoff after any failure.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("event consumer: broker dial failed", "error", err, "retry_in", backoff.String())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn); err != nil {
			c.log.Warn("event consumer: loop ended, reconnecting", "error", err)
			_ = conn.Close()
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.log.Warn("event consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.Warn("event consumer: handle failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle decodes one event and routes it to the indexing layer.
func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev IndexEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	switch ev.Type {
	case EventPropertyCreated:
		return c.ix.OnPropertyCreated(ctx, ev.PropertyID)
	case EventPropertyUpdated:
		return c.ix.OnPropertyUpdated(ctx, ev.PropertyID)
	case EventPropertyDeleted:
		return c.ix.OnPropertyDeleted(ctx, ev.PropertyID)
	case EventUnitCreated:
		return c.ix.OnUnitCreated(ctx, ev.UnitID, ev.PropertyID)
	case EventUnitUpdated:
		return c.ix.OnUnitUpdated(ctx, ev.UnitID, ev.PropertyID)
	case EventUnitDeleted:
		return c.ix.OnUnitDeleted(ctx, ev.UnitID, ev.PropertyID)
	case EventAvailability:
		return c.ix.OnAvailabilityChanged(ctx, ev.UnitID, ev.PropertyID, ev.Ranges)
	case EventPricing:
		return c.ix.OnPricingRuleChanged(ctx, ev.UnitID, ev.PropertyID, ev.Pricing)
	case EventDynamicFields:
		return c.ix.OnDynamicFieldChanged(ctx, ev.PropertyID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}
