package eventstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/joripage/order-manager/pkg/oms/model"
)

const (
	pebbleEventPrefix   = "ev/"
	pebbleArchivePrefix = "arc/"
)

// PebbleEventStore is a local durable journal. Keys sort by order ID then
// sequence, so a prefix scan returns one order's events in order.
type PebbleEventStore struct {
	db   *pebble.DB
	sync bool
}

func NewPebbleEventStore(path string, sync bool) (*PebbleEventStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble journal %s: %w", path, err)
	}
	return &PebbleEventStore{db: db, sync: sync}, nil
}

func (s *PebbleEventStore) Close() error {
	return s.db.Close()
}

func orderPrefix(orderID string) []byte {
	return []byte(pebbleEventPrefix + orderID + "/")
}

func eventKey(orderID string, seq int) []byte {
	key := orderPrefix(orderID)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seq))
	return append(key, buf[:]...)
}

// upperBound returns the smallest key greater than every key with prefix p.
func upperBound(p []byte) []byte {
	end := make([]byte, len(p))
	copy(end, p)
	end[len(end)-1]++
	return end
}

func (s *PebbleEventStore) AddEvent(_ context.Context, ev *model.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	opt := pebble.NoSync
	if s.sync {
		opt = pebble.Sync
	}
	return s.db.Set(eventKey(ev.OrderID, ev.Seq), data, opt)
}

func (s *PebbleEventStore) scan(lower, upper []byte, fn func(*model.OrderEvent) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		ev := &model.OrderEvent{}
		if err := json.Unmarshal(iter.Value(), ev); err != nil {
			return fmt.Errorf("decode journal key %q: %w", iter.Key(), err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *PebbleEventStore) Events(_ context.Context, orderID string) ([]*model.OrderEvent, error) {
	prefix := orderPrefix(orderID)
	var out []*model.OrderEvent
	err := s.scan(prefix, upperBound(prefix), func(ev *model.OrderEvent) error {
		out = append(out, ev)
		return nil
	})
	return out, err
}

// Replay returns the latest snapshot of every journalled order, ordered by
// order ID.
func (s *PebbleEventStore) Replay(_ context.Context) ([]model.Order, error) {
	prefix := []byte(pebbleEventPrefix)
	var (
		out  []model.Order
		last *model.OrderEvent
	)
	err := s.scan(prefix, upperBound(prefix), func(ev *model.OrderEvent) error {
		if last != nil && last.OrderID != ev.OrderID {
			out = append(out, last.Order)
		}
		last = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	if last != nil {
		out = append(out, last.Order)
	}
	return out, nil
}

// DeleteOrder removes every event of an archived order and leaves a tombstone
// under arc/ so the ID stays reserved across restarts.
func (s *PebbleEventStore) DeleteOrder(orderID string) error {
	prefix := orderPrefix(orderID)
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange(prefix, upperBound(prefix), nil); err != nil {
		return err
	}
	if err := b.Set([]byte(pebbleArchivePrefix+orderID), nil, nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// ArchivedIDs lists the IDs of orders pruned by DeleteOrder.
func (s *PebbleEventStore) ArchivedIDs(_ context.Context) ([]string, error) {
	prefix := []byte(pebbleArchivePrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(prefix):]))
	}
	return ids, iter.Error()
}
