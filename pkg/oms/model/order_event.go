package model

import (
	"fmt"
	"time"
)

// OrderEvent is the journal record written for every order change. It carries
// the full post-change snapshot so a journal can be replayed into a registry.
type OrderEvent struct {
	EventID   string     `json:"event_id"`
	OrderID   string     `json:"order_id"`
	Seq       int        `json:"seq"`
	State     OrderState `json:"state"`
	Order     Order      `json:"order"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewOrderEvent(order Order, ts time.Time) *OrderEvent {
	seq := len(order.History)
	return &OrderEvent{
		EventID:   NewEventID(order.ID, seq),
		OrderID:   order.ID,
		Seq:       seq,
		State:     order.State,
		Order:     order.Clone(),
		Timestamp: ts,
	}
}

func NewEventID(orderID string, seq int) string {
	return fmt.Sprintf("%s-%d", orderID, seq)
}
