package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joripage/order-manager/pkg/metrics"
	"github.com/joripage/order-manager/pkg/oms"
	"github.com/joripage/order-manager/pkg/oms/archive"
	eventstore "github.com/joripage/order-manager/pkg/oms/event_store"
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/joripage/order-manager/pkg/oms/registry"
	riskrule "github.com/joripage/order-manager/pkg/oms/risk_rule"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler http.Handler
	oms     *oms.OMS
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	journal := eventstore.NewInMemoryEventStore(16)
	reg := registry.New(registry.Config{}, registry.WithEventStore(journal))
	v, err := riskrule.NewValidator(riskrule.ValidatorConfig{}, nil, nil)
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg, func() float64 { return float64(reg.Live()) })
	core := oms.NewOMS(v, reg, oms.WithReporters(m))

	srv := NewServer(Config{}, core, journal, reg.Live, promReg, nil, opts...)
	return &fixture{handler: srv.Handler(), oms: core}
}

func (f *fixture) submit(t *testing.T, instrument string) string {
	t.Helper()
	id, err := f.oms.Submit(context.Background(), model.TradeRequest{
		Instrument: instrument,
		Side:       model.OrderSideBuy,
		Volume:     decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "EURUSD")

	rec := f.do("GET", "/api/v1/orders/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var o model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, id, o.ID)
	assert.Equal(t, model.OrderStateAccepted, o.State)

	rec = f.do("GET", "/api/v1/orders/ORD-404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeHistory struct {
	orders map[string]model.Order
	err    error
	filter model.OrderFilter
}

func (h *fakeHistory) LookupOrder(_ context.Context, id string) (model.Order, bool, error) {
	if h.err != nil {
		return model.Order{}, false, h.err
	}
	o, ok := h.orders[id]
	return o, ok, nil
}

func (h *fakeHistory) SearchOrders(_ context.Context, filter model.OrderFilter) ([]model.Order, error) {
	h.filter = filter
	if h.err != nil {
		return nil, h.err
	}
	var out []model.Order
	for _, o := range h.orders {
		out = append(out, o)
	}
	return out, nil
}

func TestGetOrderFallsBackToHistory(t *testing.T) {
	h := &fakeHistory{orders: map[string]model.Order{
		"ORD-77": {ID: "ORD-77", State: model.OrderStateFilled},
	}}
	f := newFixture(t, WithHistory(h))
	live := f.submit(t, "EURUSD")

	rec := f.do("GET", "/api/v1/orders/"+live, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(sourceHeader))

	rec = f.do("GET", "/api/v1/orders/ORD-77", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "history", rec.Header().Get(sourceHeader))
	var o model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, model.OrderStateFilled, o.State)

	assert.Equal(t, http.StatusNotFound, f.do("GET", "/api/v1/orders/ORD-404", "").Code)

	h.err = errors.New("connection refused")
	assert.Equal(t, http.StatusBadGateway, f.do("GET", "/api/v1/orders/ORD-77", "").Code)
}

func TestSearchArchive(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, newFixture(t).do("GET", "/api/v1/archive/orders", "").Code)

	h := &fakeHistory{orders: map[string]model.Order{
		"ORD-77": {ID: "ORD-77", State: model.OrderStateFilled},
	}}
	f := newFixture(t, WithHistory(h))

	var orders []model.Order
	rec := f.do("GET", "/api/v1/archive/orders?state=filled,cancelled&instrument=EURUSD&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, []model.OrderState{model.OrderStateFilled, model.OrderStateCancelled}, h.filter.States)
	assert.Equal(t, "EURUSD", h.filter.Instrument)
	assert.Equal(t, 5, h.filter.Limit)

	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/api/v1/archive/orders?state=BOGUS", "").Code)
	h.err = errors.New("connection refused")
	assert.Equal(t, http.StatusBadGateway, f.do("GET", "/api/v1/archive/orders", "").Code)
}

func TestArchiveDay(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, newFixture(t).do("GET", "/api/v1/archive/days/2025-06-01", "").Code)

	archiver := archive.NewParquetArchiver(t.TempDir())
	f := newFixture(t, WithArchive(archiver))
	id := f.submit(t, "EURUSD")
	o, ok := f.oms.Get(id)
	require.True(t, ok)
	require.NoError(t, archiver.Archive(context.Background(), []model.Order{o}))

	var orders []model.Order
	rec := f.do("GET", "/api/v1/archive/days/"+time.Now().UTC().Format(time.DateOnly), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, id, orders[0].ID)

	rec = f.do("GET", "/api/v1/archive/days/1999-01-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/api/v1/archive/days/yesterday", "").Code)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	a := f.submit(t, "EURUSD")
	f.submit(t, "GBPUSD")
	f.submit(t, "EURUSD")
	_, err := f.oms.ApplyEvent(context.Background(), model.Event{OrderID: a, Kind: model.EventCancel})
	require.NoError(t, err)

	var orders []model.Order
	rec := f.do("GET", "/api/v1/orders?instrument=EURUSD", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 2)

	rec = f.do("GET", "/api/v1/orders?state=cancelled", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, a, orders[0].ID)

	rec = f.do("GET", "/api/v1/orders?limit=1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/api/v1/orders?state=BOGUS", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/api/v1/orders?limit=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/api/v1/orders?needs_review=maybe", "").Code)
}

func TestApplyEvent(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "EURUSD")

	rec := f.do("POST", "/api/v1/orders/"+id+"/events", `{"kind":"fill","quantity":"4"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var o model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, model.OrderStatePartiallyFilled, o.State)
	assert.Equal(t, "manual", o.History[len(o.History)-1].Reason)

	rec = f.do("POST", "/api/v1/orders/"+id+"/events", `{"kind":"fill","quantity":"7"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do("POST", "/api/v1/orders/"+id+"/events", `{"kind":"bounce"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do("POST", "/api/v1/orders/"+id+"/events", `{"kind":"fill","timestamp":"2000-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do("POST", "/api/v1/orders/ORD-404/events", `{"kind":"cancel"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do("POST", "/api/v1/orders/"+id+"/events", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentEvents(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "EURUSD")

	rec := f.do("GET", "/api/v1/events/recent?n=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []model.OrderEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, id+"-1", events[0].EventID)
	assert.Equal(t, model.OrderStateAccepted, events[1].State)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "EURUSD")

	rec := f.do("GET", "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var h HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, int64(1), h.LiveOrders)

	rec = f.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "oms_live_orders 1")
	assert.Contains(t, rec.Body.String(), `oms_order_state_changes_total{state="ACCEPTED"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest("OPTIONS", "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
