package eventstore

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
	"github.com/joripage/order-manager/pkg/oms/model"
)

const defaultRecentSize = 1024

type InMemoryEventStore struct {
	mu         sync.RWMutex
	orders     map[string][]*model.OrderEvent
	recent     deque.Deque[*model.OrderEvent]
	recentSize int
}

func NewInMemoryEventStore(recentSize int) *InMemoryEventStore {
	if recentSize <= 0 {
		recentSize = defaultRecentSize
	}
	return &InMemoryEventStore{
		orders:     make(map[string][]*model.OrderEvent),
		recentSize: recentSize,
	}
}

func (s *InMemoryEventStore) AddEvent(_ context.Context, ev *model.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[ev.OrderID] = append(s.orders[ev.OrderID], ev)

	s.recent.PushBack(ev)
	for s.recent.Len() > s.recentSize {
		s.recent.PopFront()
	}
	return nil
}

func (s *InMemoryEventStore) Events(_ context.Context, orderID string) ([]*model.OrderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.orders[orderID]
	out := make([]*model.OrderEvent, len(evs))
	copy(out, evs)
	return out, nil
}

// Recent returns up to n of the newest events, oldest first.
func (s *InMemoryEventStore) Recent(n int) []*model.OrderEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.recent.Len()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]*model.OrderEvent, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, s.recent.At(i))
	}
	return out
}

// DeleteOrder drops the per-order events of an archived order.
func (s *InMemoryEventStore) DeleteOrder(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, orderID)
	return nil
}
