package kafka

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/sepatuku/internal/orders"
)

var _ orders.Publisher = (*Publisher)(nil)

type sink interface {
	Publish(key, value []byte, headers ...kafka.Header) bool
}

// Publisher wraps checkout events in envelope v1 and hands them to one
// producer per topic.
type Publisher struct {
	Created   sink
	Shortfall sink
	Service   string
	Now       func() time.Time
}

func (p *Publisher) envelope(ctx context.Context, eventType, orderID string, payload any) orders.Envelope {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now().UTC(),
		Producer:      p.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderID,
		Payload:       MustMarshal(payload),
	}
}

func headers(eventType string) []kafka.Header {
	return []kafka.Header{
		{Key: "x-event-type", Value: []byte(eventType)},
		{Key: "x-event-version", Value: []byte("1")},
	}
}

func (p *Publisher) OrderCreated(ctx context.Context, o orders.Order) {
	ev := p.envelope(ctx, orders.EventOrderCreated, o.ID, orders.NewOrderCreatedPayload(o))
	p.Created.Publish(orders.PartitionKey(o.ID), MustMarshal(ev), headers(orders.EventOrderCreated)...)
}

func (p *Publisher) StockShortfall(ctx context.Context, orderID string, items []orders.Shortfall) {
	ev := p.envelope(ctx, orders.EventStockShortfall, orderID, orders.StockShortfallPayload{OrderID: orderID, Items: items})
	p.Shortfall.Publish(orders.PartitionKey(orderID), MustMarshal(ev), headers(orders.EventStockShortfall)...)
}
