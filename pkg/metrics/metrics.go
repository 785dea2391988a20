package metrics

import (
	"context"
	"time"

	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "oms"

type Metrics struct {
	OrderStates   *prometheus.CounterVec
	FilledOrders  prometheus.Counter
	NeedsReview   prometheus.Counter
	SubmitResults *prometheus.CounterVec
	SubmitLatency prometheus.Histogram
	VenueEvents   *prometheus.CounterVec
}

// New registers the collectors on reg. live, when set, backs the
// live-orders gauge.
func New(reg prometheus.Registerer, live func() float64) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		OrderStates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_state_changes_total",
			Help:      "Committed order state changes by resulting state.",
		}, []string{"state"}),
		FilledOrders: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_filled_total",
			Help:      "Orders that reached FILLED.",
		}),
		NeedsReview: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_needs_review_total",
			Help:      "Orders created without a reference price check.",
		}),
		SubmitResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_requests_total",
			Help:      "SendTradeOrder calls by outcome.",
		}, []string{"outcome"}),
		SubmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "SendTradeOrder latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		VenueEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "venue_events_total",
			Help:      "Lifecycle events received from venues by kind and result.",
		}, []string{"kind", "result"}),
	}

	if live != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_orders",
			Help:      "Orders not yet in a terminal state.",
		}, live)
	}
	return m
}

// OnOrderReport counts every committed order change.
func (m *Metrics) OnOrderReport(_ context.Context, order model.Order) {
	m.OrderStates.WithLabelValues(string(order.State)).Inc()
	switch order.State {
	case model.OrderStateSubmitted:
		if order.NeedsReview {
			m.NeedsReview.Inc()
		}
	case model.OrderStateFilled:
		m.FilledOrders.Inc()
	}
}

func (m *Metrics) ObserveSubmit(outcome string, d time.Duration) {
	m.SubmitResults.WithLabelValues(outcome).Inc()
	m.SubmitLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveVenueEvent(kind model.EventKind, err error) {
	result := "applied"
	if err != nil {
		result = "dropped"
	}
	m.VenueEvents.WithLabelValues(string(kind), result).Inc()
}
