// Package registry is the authoritative table of orders. It is the only owner
// of order state; callers get deep copies and IDs, never references.
package registry

import (
	"context"
	"fmt"
	"hash/fnv"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	eventstore "github.com/joripage/order-manager/pkg/oms/event_store"
	"github.com/joripage/order-manager/pkg/oms/lifecycle"
	"github.com/joripage/order-manager/pkg/oms/model"
	"go.uber.org/zap"
)

type Config struct {
	Shards        int           `yaml:"shards"`
	MaxLiveOrders int           `yaml:"max_live_orders"` // 0 = unlimited
	LockTimeout   time.Duration `yaml:"lock_timeout"`
}

const (
	defaultShards      = 64
	defaultLockTimeout = 2 * time.Second
)

type Registry struct {
	cfg    Config
	shards []*shard
	ids    IDGenerator
	clock  *monotonicClock
	store  eventstore.EventStore
	logger *zap.Logger

	live atomic.Int64

	// Writers hold cutMu shared while publishing a snapshot pointer; List
	// holds it exclusively only while it copies pointers out.
	cutMu sync.RWMutex
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// entry serializes all mutation of one order through lock, a one-slot
// semaphore, and publishes immutable snapshots through current.
type entry struct {
	lock    chan struct{}
	current atomic.Pointer[model.Order]
}

func newEntry() *entry {
	return &entry{lock: make(chan struct{}, 1)}
}

type Option func(*Registry)

func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) { r.ids = g }
}

func WithEventStore(s eventstore.EventStore) Option {
	return func(r *Registry) { r.store = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.clock = newMonotonicClock(now) }
}

func New(cfg Config, opts ...Option) *Registry {
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShards
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}

	r := &Registry{
		cfg:    cfg,
		shards: make([]*shard, cfg.Shards),
		ids:    NewSequenceIDGenerator(DefaultIDPrefix),
		clock:  newMonotonicClock(nil),
		store:  eventstore.Nop(),
		logger: zap.NewNop(),
	}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

func (r *Registry) lookup(id string) (*entry, bool) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[id]
	return e, ok
}

func (r *Registry) reserve() bool {
	max := int64(r.cfg.MaxLiveOrders)
	for {
		n := r.live.Load()
		if max > 0 && n >= max {
			return false
		}
		if r.live.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Create stores a new SUBMITTED order and returns its ID. Either the order
// becomes visible with its creation history, or nothing is left behind.
func (r *Registry) Create(ctx context.Context, req model.ValidatedRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !r.reserve() {
		return "", ErrCapacityExceeded
	}
	committed := false
	defer func() {
		if !committed {
			r.live.Add(-1)
		}
	}()

	id, err := r.ids.NextID(ctx)
	if err != nil {
		return "", err
	}
	order := lifecycle.NewOrder(id, req, r.clock.Now())

	// last point where a gone caller can still back out
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e := newEntry()
	e.current.Store(&order)
	e.lock <- struct{}{} // nobody else can see e yet
	defer func() { <-e.lock }()

	sh := r.shardFor(id)
	r.cutMu.RLock()
	sh.mu.Lock()
	_, exists := sh.entries[id]
	if !exists {
		sh.entries[id] = e
	}
	sh.mu.Unlock()
	r.cutMu.RUnlock()
	if exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	committed = true

	r.record(context.WithoutCancel(ctx), order)
	return id, nil
}

// Get returns a copy of the order's latest snapshot.
func (r *Registry) Get(id string) (model.Order, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return model.Order{}, false
	}
	return e.current.Load().Clone(), true
}

func (r *Registry) acquire(ctx context.Context, e *entry) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(r.cfg.LockTimeout)
	defer timer.Stop()

	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrLockTimeout
	}
}

// Transition applies ev to the order under its lock. Events without a
// timestamp are stamped here, strictly after the order's last update.
func (r *Registry) Transition(ctx context.Context, id string, ev model.Event) (model.Order, error) {
	e, ok := r.lookup(id)
	if !ok {
		return model.Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := r.acquire(ctx, e); err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	defer func() { <-e.lock }()

	cur := e.current.Load()
	ev.OrderID = id
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.clock.Now()
		if !ev.Timestamp.After(cur.UpdatedAt) {
			ev.Timestamp = cur.UpdatedAt.Add(time.Nanosecond)
		}
	}

	next, err := lifecycle.Apply(*cur, ev)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", id, err)
	}

	r.cutMu.RLock()
	e.current.Store(&next)
	r.cutMu.RUnlock()

	if next.State.IsTerminal() {
		r.live.Add(-1)
	}

	r.record(context.WithoutCancel(ctx), next)
	return next.Clone(), nil
}

func (r *Registry) record(ctx context.Context, order model.Order) {
	ev := model.NewOrderEvent(order, order.UpdatedAt)
	if err := r.store.AddEvent(ctx, ev); err != nil {
		r.logger.Error("journal write failed",
			zap.String("order_id", order.ID),
			zap.String("event_id", ev.EventID),
			zap.Error(err))
	}
}

// snapshot cuts a consistent view: no write is half visible in it.
func (r *Registry) snapshot() []*model.Order {
	r.cutMu.Lock()
	var out []*model.Order
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			out = append(out, e.current.Load())
		}
		sh.mu.RUnlock()
	}
	r.cutMu.Unlock()

	slices.SortFunc(out, func(a, b *model.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// List returns the orders matching filter as of the call, oldest first.
// The sequence can be ranged over any number of times and holds no lock.
func (r *Registry) List(filter model.OrderFilter) iter.Seq[model.Order] {
	snap := r.snapshot()
	return func(yield func(model.Order) bool) {
		n := 0
		for _, o := range snap {
			if !filter.Match(*o) {
				continue
			}
			if !yield(o.Clone()) {
				return
			}
			n++
			if filter.Limit > 0 && n >= filter.Limit {
				return
			}
		}
	}
}

// Evict removes terminal orders for which pred is true and returns them.
// Non-terminal orders are never evicted.
func (r *Registry) Evict(pred func(model.Order) bool) []model.Order {
	r.cutMu.RLock()
	defer r.cutMu.RUnlock()

	var out []model.Order
	for _, sh := range r.shards {
		sh.mu.Lock()
		for id, e := range sh.entries {
			o := e.current.Load()
			if o.State.IsTerminal() && pred(*o) {
				delete(sh.entries, id)
				out = append(out, o.Clone())
			}
		}
		sh.mu.Unlock()
	}
	return out
}

// Restore loads orders recovered from a journal. It must run before the
// registry serves traffic. Restored IDs are reported to generators that can
// observe them so they are never reissued.
func (r *Registry) Restore(orders []model.Order) error {
	observer, _ := r.ids.(interface{ Observe(id string) })

	for _, o := range orders {
		state, err := lifecycle.Replay(o.History)
		if err != nil {
			return fmt.Errorf("restore %s: %w", o.ID, err)
		}
		if state != o.State {
			return fmt.Errorf("restore %s: state %s, history says %s", o.ID, o.State, state)
		}

		o = o.Clone()
		e := newEntry()
		e.current.Store(&o)

		sh := r.shardFor(o.ID)
		sh.mu.Lock()
		_, exists := sh.entries[o.ID]
		if !exists {
			sh.entries[o.ID] = e
		}
		sh.mu.Unlock()
		if exists {
			return fmt.Errorf("restore: %w: %s", ErrDuplicateID, o.ID)
		}

		if !o.State.IsTerminal() {
			r.live.Add(1)
		}
		if observer != nil {
			observer.Observe(o.ID)
		}
		r.clock.observe(o.UpdatedAt)
	}
	return nil
}

// ReserveIDs marks IDs issued by an earlier run that are no longer held, so
// the generator never hands them out again.
func (r *Registry) ReserveIDs(ids []string) {
	observer, ok := r.ids.(interface{ Observe(id string) })
	if !ok {
		return
	}
	for _, id := range ids {
		observer.Observe(id)
	}
}

// Live is the number of orders not yet in a terminal state.
func (r *Registry) Live() int64 {
	return r.live.Load()
}

func (r *Registry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
