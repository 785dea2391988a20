package oms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joripage/order-manager/pkg/marketdata"
	eventstore "github.com/joripage/order-manager/pkg/oms/event_store"
	"github.com/joripage/order-manager/pkg/oms/lifecycle"
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/joripage/order-manager/pkg/oms/registry"
	riskrule "github.com/joripage/order-manager/pkg/oms/risk_rule"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestOMS(t *testing.T, cfg registry.Config, opts ...Option) (*OMS, *registry.Registry) {
	t.Helper()
	prices := marketdata.NewStaticSource(map[string]decimal.Decimal{"EURUSD": dec("1.1000")})
	v, err := riskrule.NewValidator(riskrule.ValidatorConfig{
		AllowedInstruments: []string{"EURUSD", "GBPUSD"},
	}, prices, nil)
	require.NoError(t, err)
	reg := registry.New(cfg)
	return NewOMS(v, reg, opts...), reg
}

func eurusdBuy() model.TradeRequest {
	return model.TradeRequest{
		Instrument: "EURUSD",
		Side:       model.OrderSideBuy,
		Volume:     dec("1.0"),
		StopLoss:   decPtr("1.0950"),
		TakeProfit: decPtr("1.1050"),
	}
}

func TestSubmitAccepted(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{})

	id, err := s.Submit(context.Background(), eurusdBuy())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	o, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.OrderStateAccepted, o.State)
	require.Len(t, o.History, 2)
	assert.Equal(t, model.OrderStateSubmitted, o.History[0].To)
	assert.Equal(t, model.OrderStateAccepted, o.History[1].To)
	assert.False(t, o.NeedsReview)
}

func TestSubmitWithoutAutoAccept(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{}, WithoutAutoAccept())
	id, err := s.Submit(context.Background(), eurusdBuy())
	require.NoError(t, err)
	o, _ := s.Get(id)
	assert.Equal(t, model.OrderStateSubmitted, o.State)
}

func TestSubmitValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		req  model.TradeRequest
		rule string
	}{
		{
			name: "empty instrument",
			req:  model.TradeRequest{Side: model.OrderSideBuy, Volume: dec("1.0")},
			rule: "instrument",
		},
		{
			name: "negative volume",
			req:  model.TradeRequest{Instrument: "EURUSD", Side: model.OrderSideBuy, Volume: dec("-5")},
			rule: "volume",
		},
		{
			name: "stop loss above reference",
			req: model.TradeRequest{Instrument: "EURUSD", Side: model.OrderSideBuy, Volume: dec("1"),
				StopLoss: decPtr("1.2000")},
			rule: "price_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, reg := newTestOMS(t, registry.Config{})
			id, err := s.Submit(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.ErrorIs(t, err, riskrule.ErrValidation)
			ve, ok := riskrule.IsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.rule, ve.Rule)
			assert.Empty(t, id)
			assert.Equal(t, 0, reg.Len())
		})
	}
}

func TestSubmitOverloaded(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{MaxLiveOrders: 1})
	_, err := s.Submit(context.Background(), eurusdBuy())
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), eurusdBuy())
	require.ErrorIs(t, err, ErrOverloaded)
	require.ErrorIs(t, err, registry.ErrCapacityExceeded)
}

func TestSubmitNeedsReviewWhenPriceMissing(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{})
	req := eurusdBuy()
	req.Instrument = "GBPUSD"

	id, err := s.Submit(context.Background(), req)
	require.NoError(t, err)
	o, _ := s.Get(id)
	assert.True(t, o.NeedsReview)
	assert.NotEmpty(t, o.ReviewReason)

	flagged := true
	var ids []string
	for o := range s.List(model.OrderFilter{NeedsReview: &flagged}) {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{id}, ids)
}

func TestSubmitUniqueIDsConcurrently(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{})
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]struct{}{}
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				id, err := s.Submit(context.Background(), eurusdBuy())
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				_, dup := ids[id]
				ids[id] = struct{}{}
				mu.Unlock()
				assert.False(t, dup, id)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 64*20)
}

func TestApplyEventLifecycle(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{})
	ctx := context.Background()
	id, err := s.Submit(ctx, eurusdBuy())
	require.NoError(t, err)

	o, err := s.ApplyEvent(ctx, model.Event{OrderID: id, Kind: model.EventFill, Quantity: dec("0.4")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatePartiallyFilled, o.State)

	o, err = s.ApplyEvent(ctx, model.Event{OrderID: id, Kind: model.EventFill, Quantity: dec("0.6")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStateFilled, o.State)

	// late cancel on a filled order
	_, err = s.ApplyEvent(ctx, model.Event{OrderID: id, Kind: model.EventCancel})
	require.ErrorIs(t, err, lifecycle.ErrIllegalTransition)

	after, _ := s.Get(id)
	assert.Equal(t, model.OrderStateFilled, after.State)
	assert.Equal(t, o.History, after.History)

	state, err := lifecycle.Replay(after.History)
	require.NoError(t, err)
	assert.Equal(t, after.State, state)
}

func TestApplyEventStaleIsIdempotent(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{})
	ctx := context.Background()
	id, err := s.Submit(ctx, eurusdBuy())
	require.NoError(t, err)

	ts := time.Now().Add(time.Hour)
	fill := model.Event{OrderID: id, Kind: model.EventFill, Quantity: dec("0.5"), Timestamp: ts}
	first, err := s.ApplyEvent(ctx, fill)
	require.NoError(t, err)

	_, err = s.ApplyEvent(ctx, fill)
	require.ErrorIs(t, err, lifecycle.ErrStaleEvent)
	fill.Timestamp = ts.Add(-time.Second)
	_, err = s.ApplyEvent(ctx, fill)
	require.ErrorIs(t, err, lifecycle.ErrStaleEvent)

	again, _ := s.Get(id)
	assert.Equal(t, first, again)
}

func TestApplyEventUnknownOrder(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{})
	_, err := s.ApplyEvent(context.Background(), model.Event{OrderID: "ORD-77", Kind: model.EventAccept})
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestReportersSeeEveryChange(t *testing.T) {
	var (
		mu     sync.Mutex
		states []model.OrderState
	)
	rep := OrderReporterFunc(func(_ context.Context, o model.Order) {
		mu.Lock()
		states = append(states, o.State)
		mu.Unlock()
	})
	s, _ := newTestOMS(t, registry.Config{}, WithReporters(rep))
	ctx := context.Background()

	id, err := s.Submit(ctx, eurusdBuy())
	require.NoError(t, err)
	_, err = s.ApplyEvent(ctx, model.Event{OrderID: id, Kind: model.EventCancel})
	require.NoError(t, err)
	_, err = s.ApplyEvent(ctx, model.Event{OrderID: id, Kind: model.EventCancel})
	require.Error(t, err)

	assert.Equal(t, []model.OrderState{
		model.OrderStateSubmitted,
		model.OrderStateAccepted,
		model.OrderStateCancelled,
	}, states)
}

type memArchiver struct {
	mu     sync.Mutex
	orders []model.Order
	err    error
}

func (a *memArchiver) Archive(_ context.Context, orders []model.Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.orders = append(a.orders, orders...)
	return nil
}

func TestArchiveOnce(t *testing.T) {
	arch := &memArchiver{}
	journal := eventstore.NewInMemoryEventStore(0)
	v, err := riskrule.NewValidator(riskrule.ValidatorConfig{}, nil, nil)
	require.NoError(t, err)
	reg := registry.New(registry.Config{}, registry.WithEventStore(journal))
	s := NewOMS(v, reg, WithArchiver(arch, journal, time.Hour, time.Minute))
	ctx := context.Background()

	live, err := s.Submit(ctx, eurusdBuy())
	require.NoError(t, err)
	done, err := s.Submit(ctx, eurusdBuy())
	require.NoError(t, err)
	_, err = s.ApplyEvent(ctx, model.Event{OrderID: done, Kind: model.EventCancel})
	require.NoError(t, err)

	// nothing is old enough yet
	assert.Equal(t, 0, s.archiveOnce(ctx))

	s.archive.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.Equal(t, 1, s.archiveOnce(ctx))
	require.Len(t, arch.orders, 1)
	assert.Equal(t, done, arch.orders[0].ID)

	_, ok := s.Get(done)
	assert.False(t, ok)
	_, ok = s.Get(live)
	assert.True(t, ok)

	events, err := journal.Events(ctx, done)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestArchiveFailureKeepsOrders(t *testing.T) {
	arch := &memArchiver{err: errors.New("disk full")}
	v, err := riskrule.NewValidator(riskrule.ValidatorConfig{}, nil, nil)
	require.NoError(t, err)
	reg := registry.New(registry.Config{})
	s := NewOMS(v, reg, WithArchiver(arch, nil, time.Hour, time.Minute))
	s.archive.now = func() time.Time { return time.Now().Add(time.Hour) }
	ctx := context.Background()

	id, err := s.Submit(ctx, eurusdBuy())
	require.NoError(t, err)
	_, err = s.ApplyEvent(ctx, model.Event{OrderID: id, Kind: model.EventExpire})
	require.NoError(t, err)

	assert.Equal(t, 0, s.archiveOnce(ctx))
	o, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.OrderStateExpired, o.State)
}

func TestStartArchiverStops(t *testing.T) {
	s, _ := newTestOMS(t, registry.Config{})
	require.NoError(t, s.StartArchiver(context.Background()))

	arch := &memArchiver{}
	s2, _ := newTestOMS(t, registry.Config{}, WithArchiver(arch, nil, time.Millisecond, time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, s2.StartArchiver(ctx))
}

func TestRestore(t *testing.T) {
	s, reg := newTestOMS(t, registry.Config{})
	ctx := context.Background()
	id, err := s.Submit(ctx, eurusdBuy())
	require.NoError(t, err)

	var orders []model.Order
	for o := range reg.List(model.OrderFilter{}) {
		orders = append(orders, o)
	}

	s2, _ := newTestOMS(t, registry.Config{})
	require.NoError(t, s2.Restore(orders))
	o, ok := s2.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.OrderStateAccepted, o.State)

	next, err := s2.Submit(ctx, eurusdBuy())
	require.NoError(t, err)
	assert.NotEqual(t, id, next)
}

type failingPruner struct{ calls int }

func (p *failingPruner) DeleteOrder(string) error {
	p.calls++
	return errors.New("disk full")
}

func TestMultiPrunerJoinsErrors(t *testing.T) {
	mem := eventstore.NewInMemoryEventStore(8)
	bad := &failingPruner{}

	err := MultiPruner(bad, mem, bad).DeleteOrder("ORD-1")
	require.Error(t, err)
	assert.Equal(t, 2, bad.calls)
	assert.NoError(t, MultiPruner(mem).DeleteOrder("ORD-1"))
}
