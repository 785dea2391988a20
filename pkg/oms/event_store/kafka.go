package eventstore

import (
	"context"

	"github.com/joripage/order-manager/pkg/oms/model"
)

type jsonPublisher interface {
	PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error
}

// KafkaEventStore publishes events keyed by order ID so one order's events
// land on one partition in order.
type KafkaEventStore struct {
	producer jsonPublisher
	topic    string
}

func NewKafkaEventStore(producer jsonPublisher, topic string) *KafkaEventStore {
	return &KafkaEventStore{producer: producer, topic: topic}
}

func (s *KafkaEventStore) AddEvent(ctx context.Context, ev *model.OrderEvent) error {
	return s.producer.PublishJSON(ctx, s.topic, ev.OrderID, ev, map[string]string{
		"event_id": ev.EventID,
		"state":    string(ev.State),
	})
}
