package oms

import (
	"context"
	"iter"

	"github.com/joripage/order-manager/pkg/oms/model"
)

type IOMS interface {
	// client to oms
	Submit(ctx context.Context, req model.TradeRequest) (string, error)

	// venue to oms
	ApplyEvent(ctx context.Context, ev model.Event) (model.Order, error)

	Get(id string) (model.Order, bool)
	List(filter model.OrderFilter) iter.Seq[model.Order]
}

var _ IOMS = (*OMS)(nil)

// Validator turns a raw request into one the registry accepts.
type Validator interface {
	Validate(ctx context.Context, req model.TradeRequest) (model.ValidatedRequest, error)
}
