package eventstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/nats-io/nats.go"
)

type jetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NatsEventStore publishes events to a JetStream subject. The event ID is
// used as the message ID so redeliveries are deduplicated by the stream.
type NatsEventStore struct {
	js      jetStreamPublisher
	subject string
}

func NewNatsEventStore(js jetStreamPublisher, subject string) *NatsEventStore {
	return &NatsEventStore{js: js, subject: subject}
}

func (s *NatsEventStore) AddEvent(ctx context.Context, ev *model.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.js.Publish(s.subject, data, nats.MsgId(ev.EventID), nats.Context(ctx))
	return err
}

type streamAdder interface {
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// EnsureStream creates the stream carrying subject unless it already exists.
func EnsureStream(js streamAdder, stream, subject string) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: []string{subject},
	})
	if errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil
	}
	return err
}
