package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// EventRequest injects a lifecycle event by hand, e.g. to reconcile an order
// after a venue outage.
type EventRequest struct {
	Kind      string          `json:"kind"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Reason    string          `json:"reason"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	LiveOrders int64  `json:"live_orders"`
}
