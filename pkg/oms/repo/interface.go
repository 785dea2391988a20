package repo

import (
	"context"
)

type ListFilter struct {
	States      []string
	Instrument  string
	NeedsReview *bool
	Limit       int
}

type IOrder interface {
	// Upsert keeps the row with the highest LastSeq, so replays and
	// out-of-order deliveries never move an order backwards.
	Upsert(ctx context.Context, record *OrderRecord) error
	Get(ctx context.Context, id string) (*OrderRecord, error)
	List(ctx context.Context, filter ListFilter) ([]*OrderRecord, error)
}

type IOrderEvent interface {
	// BulkCreate ignores events whose ID is already stored.
	BulkCreate(ctx context.Context, records []*OrderEventRecord) ([]*OrderEventRecord, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*OrderEventRecord, error)
}
