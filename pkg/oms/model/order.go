package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderState string

const (
	OrderStateSubmitted       OrderState = "SUBMITTED"
	OrderStateAccepted        OrderState = "ACCEPTED"
	OrderStateRejected        OrderState = "REJECTED"
	OrderStatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderStateFilled          OrderState = "FILLED"
	OrderStateCancelled       OrderState = "CANCELLED"
	OrderStateExpired         OrderState = "EXPIRED"
)

// IsTerminal reports whether no further transition is legal from s.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateRejected, OrderStateFilled, OrderStateCancelled, OrderStateExpired:
		return true
	}
	return false
}

func (s OrderState) IsValid() bool {
	switch s {
	case OrderStateSubmitted, OrderStateAccepted, OrderStatePartiallyFilled:
		return true
	}
	return s.IsTerminal()
}

// HistoryEntry records one state change. The creation entry has an empty From.
type HistoryEntry struct {
	Seq      int             `json:"seq"`
	At       time.Time       `json:"at"`
	From     OrderState      `json:"from,omitempty"`
	To       OrderState      `json:"to"`
	Event    EventKind       `json:"event,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason,omitempty"`
}

type Order struct {
	ID      string       `json:"id"`
	Request TradeRequest `json:"request"`

	// calculated info
	State        OrderState      `json:"state"`
	FilledVolume decimal.Decimal `json:"filled_volume"`
	NeedsReview  bool            `json:"needs_review"`
	ReviewReason string          `json:"review_reason,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	History   []HistoryEntry `json:"history"`
}

// Clone returns a copy that shares no mutable memory with o.
func (o Order) Clone() Order {
	c := o
	c.Request = o.Request.Clone()
	c.History = make([]HistoryEntry, len(o.History))
	copy(c.History, o.History)
	return c
}

func (o Order) IsEnd() bool {
	return o.State.IsTerminal()
}

func (o Order) LeavesVolume() decimal.Decimal {
	leaves := o.Request.Volume.Sub(o.FilledVolume)
	if leaves.IsNegative() {
		return decimal.Zero
	}
	return leaves
}

// OrderFilter selects orders for monitoring. Zero value matches everything.
type OrderFilter struct {
	States      []OrderState
	Instrument  string
	NeedsReview *bool
	Limit       int
}

func (f OrderFilter) Match(o Order) bool {
	if f.Instrument != "" && f.Instrument != o.Request.Instrument {
		return false
	}
	if f.NeedsReview != nil && *f.NeedsReview != o.NeedsReview {
		return false
	}
	if len(f.States) == 0 {
		return true
	}
	for _, s := range f.States {
		if s == o.State {
			return true
		}
	}
	return false
}
