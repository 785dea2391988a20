package repo

import (
	"context"
	"errors"

	"github.com/joripage/order-manager/pkg/oms/model"
)

// History answers for orders the registry has evicted, from the read model
// the worker maintains.
type History struct {
	repo IRepo
}

func NewHistory(r IRepo) *History {
	return &History{repo: r}
}

// LookupOrder returns the newest stored snapshot of id, with its history when
// the matching event row is present.
func (h *History) LookupOrder(ctx context.Context, id string) (model.Order, bool, error) {
	rec, err := h.repo.Order().Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}

	events, err := h.repo.OrderEvent().ListByOrderID(ctx, id)
	if err != nil {
		return model.Order{}, false, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Seq == rec.LastSeq {
			o, err := events[i].Order()
			if err != nil {
				return model.Order{}, false, err
			}
			return o, true, nil
		}
	}
	return rec.Order(), true, nil
}

// SearchOrders lists order summaries matching filter, oldest first.
func (h *History) SearchOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	lf := ListFilter{
		Instrument:  filter.Instrument,
		NeedsReview: filter.NeedsReview,
		Limit:       filter.Limit,
	}
	for _, st := range filter.States {
		lf.States = append(lf.States, string(st))
	}

	recs, err := h.repo.Order().List(ctx, lf)
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Order())
	}
	return out, nil
}
