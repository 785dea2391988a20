package eventstore

import (
	"context"
	"errors"

	"github.com/joripage/order-manager/pkg/oms/model"
)

// EventStore receives every committed order change, in per-order order.
type EventStore interface {
	AddEvent(ctx context.Context, ev *model.OrderEvent) error
}

// EventReader is implemented by stores that keep events queryable.
type EventReader interface {
	Events(ctx context.Context, orderID string) ([]*model.OrderEvent, error)
}

type multiStore []EventStore

// Fanout writes each event to every store and joins their errors.
func Fanout(stores ...EventStore) EventStore {
	out := make(multiStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiStore) AddEvent(ctx context.Context, ev *model.OrderEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.AddEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopStore struct{}

func (nopStore) AddEvent(context.Context, *model.OrderEvent) error { return nil }

func Nop() EventStore { return nopStore{} }
