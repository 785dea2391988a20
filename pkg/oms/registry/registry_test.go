package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	eventstore "github.com/joripage/order-manager/pkg/oms/event_store"
	"github.com/joripage/order-manager/pkg/oms/lifecycle"
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buyReq(volume string) model.ValidatedRequest {
	return model.ValidatedRequest{
		Request: model.TradeRequest{
			Instrument: "EURUSD",
			Side:       model.OrderSideBuy,
			Volume:     decimal.RequireFromString(volume),
		},
	}
}

func collect(r *Registry, f model.OrderFilter) []model.Order {
	var out []model.Order
	for o := range r.List(f) {
		out = append(out, o)
	}
	return out
}

func TestCreateAndGet(t *testing.T) {
	r := New(Config{})

	id, err := r.Create(context.Background(), buyReq("1"))
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", id)

	o, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.OrderStateSubmitted, o.State)
	require.Len(t, o.History, 1)
	assert.Equal(t, model.OrderState(""), o.History[0].From)
	assert.Equal(t, int64(1), r.Live())

	_, ok = r.Get("ORD-999")
	assert.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	r := New(Config{})
	id, err := r.Create(context.Background(), buyReq("1"))
	require.NoError(t, err)

	o, _ := r.Get(id)
	o.State = model.OrderStateFilled
	o.History[0].Reason = "tampered"

	again, _ := r.Get(id)
	assert.Equal(t, model.OrderStateSubmitted, again.State)
	assert.Equal(t, "submitted", again.History[0].Reason)
}

func TestCapacity(t *testing.T) {
	r := New(Config{MaxLiveOrders: 2})
	ctx := context.Background()

	first, err := r.Create(ctx, buyReq("1"))
	require.NoError(t, err)
	_, err = r.Create(ctx, buyReq("1"))
	require.NoError(t, err)

	_, err = r.Create(ctx, buyReq("1"))
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 2, r.Len())

	// a terminal order frees its slot
	_, err = r.Transition(ctx, first, model.Event{Kind: model.EventReject, Reason: "venue"})
	require.NoError(t, err)
	_, err = r.Create(ctx, buyReq("1"))
	require.NoError(t, err)
}

func TestCreateCancelledLeavesNoTrace(t *testing.T) {
	r := New(Config{MaxLiveOrders: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Create(ctx, buyReq("1"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, int64(0), r.Live())

	_, err = r.Create(context.Background(), buyReq("1"))
	require.NoError(t, err)
}

type failingIDs struct{}

func (failingIDs) NextID(context.Context) (string, error) {
	return "", errors.New("id service down")
}

func TestCreateIDFailureReleasesCapacity(t *testing.T) {
	r := New(Config{MaxLiveOrders: 1}, WithIDGenerator(failingIDs{}))
	_, err := r.Create(context.Background(), buyReq("1"))
	require.Error(t, err)
	assert.Equal(t, int64(0), r.Live())
}

type fixedIDs struct{}

func (fixedIDs) NextID(context.Context) (string, error) { return "SAME", nil }

func TestCreateDuplicateID(t *testing.T) {
	r := New(Config{}, WithIDGenerator(fixedIDs{}))
	_, err := r.Create(context.Background(), buyReq("1"))
	require.NoError(t, err)
	_, err = r.Create(context.Background(), buyReq("1"))
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, int64(1), r.Live())
}

func TestTransitionErrors(t *testing.T) {
	r := New(Config{})
	ctx := context.Background()

	_, err := r.Transition(ctx, "ORD-404", model.Event{Kind: model.EventAccept})
	require.ErrorIs(t, err, ErrNotFound)

	id, err := r.Create(ctx, buyReq("10"))
	require.NoError(t, err)

	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventFill, Quantity: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, lifecycle.ErrIllegalTransition)

	accepted, err := r.Transition(ctx, id, model.Event{Kind: model.EventAccept})
	require.NoError(t, err)

	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventFill, Quantity: decimal.NewFromInt(1), Timestamp: accepted.UpdatedAt})
	require.ErrorIs(t, err, lifecycle.ErrStaleEvent)

	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventFill, Quantity: decimal.NewFromInt(11)})
	require.ErrorIs(t, err, lifecycle.ErrInvalidFill)

	o, _ := r.Get(id)
	assert.Equal(t, model.OrderStateAccepted, o.State)
	assert.Len(t, o.History, 2)
}

func TestTerminalOrderRejectsEverything(t *testing.T) {
	r := New(Config{})
	ctx := context.Background()
	id, err := r.Create(ctx, buyReq("5"))
	require.NoError(t, err)
	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventAccept})
	require.NoError(t, err)
	filled, err := r.Transition(ctx, id, model.Event{Kind: model.EventFill})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStateFilled, filled.State)
	assert.True(t, filled.FilledVolume.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(0), r.Live())

	for _, kind := range []model.EventKind{model.EventAccept, model.EventReject, model.EventFill, model.EventCancel, model.EventExpire} {
		_, err := r.Transition(ctx, id, model.Event{Kind: kind, Quantity: decimal.NewFromInt(1)})
		require.ErrorIs(t, err, lifecycle.ErrIllegalTransition, kind)
	}
	o, _ := r.Get(id)
	assert.Len(t, o.History, 3)
	assert.Equal(t, int64(0), r.Live())
}

func TestConcurrentCreateUniqueIDs(t *testing.T) {
	r := New(Config{})
	const workers, perWorker = 16, 200

	var (
		mu  sync.Mutex
		ids = make(map[string]struct{})
		wg  sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id, err := r.Create(context.Background(), buyReq("1"))
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, workers*perWorker)
	assert.Equal(t, workers*perWorker, r.Len())
}

func TestConcurrentCreateRespectsCapacity(t *testing.T) {
	r := New(Config{MaxLiveOrders: 50})
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(context.Background(), buyReq("1"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrCapacityExceeded) {
				full++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, ok)
	assert.Equal(t, 150, full)
}

func TestConcurrentFillsSameOrder(t *testing.T) {
	r := New(Config{LockTimeout: 10 * time.Second})
	ctx := context.Background()
	id, err := r.Create(ctx, buyReq("100"))
	require.NoError(t, err)
	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventAccept})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Transition(ctx, id, model.Event{Kind: model.EventFill, Quantity: decimal.NewFromInt(1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	o, _ := r.Get(id)
	assert.Equal(t, model.OrderStateFilled, o.State)
	assert.True(t, o.FilledVolume.Equal(decimal.NewFromInt(100)))
	require.Len(t, o.History, 102)
	for i, h := range o.History {
		assert.Equal(t, i+1, h.Seq)
		if i > 0 {
			assert.True(t, h.At.After(o.History[i-1].At))
		}
	}
	state, err := lifecycle.Replay(o.History)
	require.NoError(t, err)
	assert.Equal(t, o.State, state)
}

func TestLockTimeout(t *testing.T) {
	r := New(Config{LockTimeout: 20 * time.Millisecond})
	id, err := r.Create(context.Background(), buyReq("1"))
	require.NoError(t, err)

	e, ok := r.lookup(id)
	require.True(t, ok)
	e.lock <- struct{}{}
	defer func() { <-e.lock }()

	_, err = r.Transition(context.Background(), id, model.Event{Kind: model.EventAccept})
	require.ErrorIs(t, err, ErrLockTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventAccept})
	require.ErrorIs(t, err, context.Canceled)
}

func TestListSnapshotAndOrder(t *testing.T) {
	r := New(Config{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := r.Create(ctx, buyReq("1"))
		require.NoError(t, err)
	}

	seq := r.List(model.OrderFilter{})

	// changes after the call are invisible to the sequence
	_, err := r.Create(ctx, buyReq("1"))
	require.NoError(t, err)
	_, err = r.Transition(ctx, "ORD-1", model.Event{Kind: model.EventAccept})
	require.NoError(t, err)

	var first, second []string
	for o := range seq {
		first = append(first, o.ID)
		assert.Equal(t, model.OrderStateSubmitted, o.State)
	}
	for o := range seq {
		second = append(second, o.ID)
	}
	assert.Equal(t, []string{"ORD-1", "ORD-2", "ORD-3", "ORD-4", "ORD-5"}, first)
	assert.Equal(t, first, second)

	assert.Len(t, collect(r, model.OrderFilter{}), 6)
	accepted := collect(r, model.OrderFilter{States: []model.OrderState{model.OrderStateAccepted}})
	require.Len(t, accepted, 1)
	assert.Equal(t, "ORD-1", accepted[0].ID)
	assert.Len(t, collect(r, model.OrderFilter{Limit: 2}), 2)
}

func TestListDuringWrites(t *testing.T) {
	r := New(Config{})
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			id, err := r.Create(ctx, buyReq("1"))
			if err != nil {
				return
			}
			_, _ = r.Transition(ctx, id, model.Event{Kind: model.EventAccept})
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		for o := range r.List(model.OrderFilter{}) {
			require.Equal(t, o.History[len(o.History)-1].To, o.State)
		}
	}
}

func TestEvict(t *testing.T) {
	r := New(Config{})
	ctx := context.Background()
	live, err := r.Create(ctx, buyReq("1"))
	require.NoError(t, err)
	done, err := r.Create(ctx, buyReq("1"))
	require.NoError(t, err)
	_, err = r.Transition(ctx, done, model.Event{Kind: model.EventCancel})
	require.NoError(t, err)

	evicted := r.Evict(func(model.Order) bool { return true })
	require.Len(t, evicted, 1)
	assert.Equal(t, done, evicted[0].ID)

	_, ok := r.Get(done)
	assert.False(t, ok)
	_, ok = r.Get(live)
	assert.True(t, ok)
	assert.Equal(t, int64(1), r.Live())
}

func TestRestore(t *testing.T) {
	src := New(Config{})
	ctx := context.Background()
	a, err := src.Create(ctx, buyReq("1"))
	require.NoError(t, err)
	b, err := src.Create(ctx, buyReq("1"))
	require.NoError(t, err)
	_, err = src.Transition(ctx, b, model.Event{Kind: model.EventExpire})
	require.NoError(t, err)

	orders := collect(src, model.OrderFilter{})

	dst := New(Config{})
	require.NoError(t, dst.Restore(orders))
	assert.Equal(t, int64(1), dst.Live())

	id, err := dst.Create(ctx, buyReq("1"))
	require.NoError(t, err)
	assert.Equal(t, "ORD-3", id)

	// restored clock runs after the journal
	next, err := dst.Transition(ctx, a, model.Event{Kind: model.EventAccept})
	require.NoError(t, err)
	assert.True(t, next.UpdatedAt.After(orders[1].UpdatedAt))

	require.ErrorIs(t, dst.Restore(orders[:1]), ErrDuplicateID)
}

func TestRestoreRejectsInconsistentOrder(t *testing.T) {
	o := lifecycle.NewOrder("ORD-1", buyReq("1"), time.Now())
	o.State = model.OrderStateFilled
	require.Error(t, New(Config{}).Restore([]model.Order{o}))
}

func TestReserveIDs(t *testing.T) {
	r := New(Config{})
	r.ReserveIDs([]string{"ORD-9", "ORD-4"})

	id, err := r.Create(context.Background(), buyReq("1"))
	require.NoError(t, err)
	assert.Equal(t, "ORD-10", id)

	_, ok := r.Get("ORD-9")
	assert.False(t, ok)
	assert.Equal(t, int64(1), r.Live())
}

func TestJournalReceivesEveryChange(t *testing.T) {
	store := eventstore.NewInMemoryEventStore(0)
	r := New(Config{}, WithEventStore(store))
	ctx := context.Background()

	id, err := r.Create(ctx, buyReq("2"))
	require.NoError(t, err)
	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventAccept})
	require.NoError(t, err)
	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventFill, Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)

	events, err := store.Events(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("%s-%d", id, i+1), ev.EventID)
	}
	assert.Equal(t, model.OrderStatePartiallyFilled, events[2].State)
}

func TestStampedTimestampsIncrease(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New(Config{}, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	id, err := r.Create(ctx, buyReq("3"))
	require.NoError(t, err)

	_, err = r.Transition(ctx, id, model.Event{Kind: model.EventAccept})
	require.NoError(t, err)
	o, err := r.Transition(ctx, id, model.Event{Kind: model.EventFill, Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)

	assert.True(t, o.History[1].At.After(o.History[0].At))
	assert.True(t, o.History[2].At.After(o.History[1].At))
}
