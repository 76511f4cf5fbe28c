package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/index"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
)

// Publisher sends indexing outcome events to the broker over a lazily
// established shared channel. Publishing never panics; errors are logged and
// returned so callers can ignore them without interrupting their flow.
type Publisher struct {
	url   string
	queue string
	log   *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher builds a Publisher; no connection is made until first use.
func NewPublisher(url, queue string, log *logger.Logger) *Publisher {
	return &Publisher{url: url, queue: queue, log: log}
}

// PublishRebuildOutcome implements index.OutcomePublisher.
func (p *Publisher) PublishRebuildOutcome(ctx context.Context, rep index.RebuildReport) error {
	ev := RebuildOutcomeEvent{
		Indexed:    rep.Indexed,
		Failed:     rep.Failed,
		Duration:   rep.Duration.String(),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.publish(ctx, body)
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	ch, err := p.channel()
	if err != nil {
		p.log.Warn("outcome publisher: channel unavailable", "error", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("outcome publisher: publish failed", "error", err)
		p.reset()
		return err
	}
	return nil
}

// channel returns the shared channel, dialing and declaring the durable
// queue on first use.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		return p.ch, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// reset drops the shared channel so the next publish re-dials.
func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close tears down the broker connection.
func (p *Publisher) Close() { p.reset() }
