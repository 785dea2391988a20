package oms

import (
	"context"

	"github.com/joripage/order-manager/pkg/oms/model"
)

// OrderReporter is told about every committed order change. Reports for one
// order may interleave when a venue event races the auto accept.
// Implementations must not block.
type OrderReporter interface {
	OnOrderReport(ctx context.Context, order model.Order)
}

type OrderReporterFunc func(ctx context.Context, order model.Order)

func (f OrderReporterFunc) OnOrderReport(ctx context.Context, order model.Order) {
	f(ctx, order)
}
