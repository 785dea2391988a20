package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventAccept EventKind = "ACCEPT"
	EventReject EventKind = "REJECT"
	EventFill   EventKind = "FILL"
	EventCancel EventKind = "CANCEL"
	EventExpire EventKind = "EXPIRE"
)

func ParseEventKind(s string) EventKind {
	return EventKind(strings.ToUpper(strings.TrimSpace(s)))
}

func (k EventKind) IsValid() bool {
	switch k {
	case EventAccept, EventReject, EventFill, EventCancel, EventExpire:
		return true
	}
	return false
}

// Event is a lifecycle event for one order, usually reported by the venue.
// Quantity is only read for fills; zero fills the remaining volume.
// A zero Timestamp is stamped by the registry when the event is applied.
type Event struct {
	OrderID   string          `json:"order_id"`
	Kind      EventKind       `json:"kind"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
	Reason    string          `json:"reason,omitempty"`
}
