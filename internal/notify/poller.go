package notify

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/golubka/foodbot/internal/orders"
)

// Topic carries one message per confirmed order, keyed by order id.
const Topic = "order-confirmed"

const pollBatchSize = 100

// OutboxSource is the slice of the orders repository the poller drains.
type OutboxSource interface {
	UnprocessedEvents(ctx context.Context, limit int) ([]*orders.OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id int64) error
}

// OutboxPoller moves pending outbox rows into Kafka. Publishing is
// at-least-once: a row is marked processed only after the broker accepted it,
// so a crash in between re-publishes rather than drops.
type OutboxPoller struct {
	tick   time.Duration
	source OutboxSource
	writer *kafka.Writer
}

func NewOutboxPoller(source OutboxSource, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{tick: time.Second, source: source, writer: w}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("error closing kafka writer: %v", err)
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.source.UnprocessedEvents(ctx, pollBatchSize)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			log.Printf("failed to publish event id = %v: %v", event.ID, errPublish)
			continue
		}

		if errMark := p.source.MarkEventProcessed(ctx, event.ID); errMark != nil {
			log.Printf("failed to mark event as processed id = %v: %v", event.ID, errMark)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *orders.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id for ordering
		Value: event.Payload,             // Already JSON from database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
