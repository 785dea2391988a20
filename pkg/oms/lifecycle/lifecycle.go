// Package lifecycle holds the order state machine. Everything here is pure:
// callers own serialization and persistence.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// allowed prior states per event. FILL resolves to FILLED or PARTIALLY_FILLED
// depending on the cumulative quantity.
var allowed = map[model.EventKind][]model.OrderState{
	model.EventAccept: {model.OrderStateSubmitted},
	model.EventReject: {model.OrderStateSubmitted, model.OrderStateAccepted},
	model.EventFill:   {model.OrderStateAccepted, model.OrderStatePartiallyFilled},
	model.EventCancel: {model.OrderStateSubmitted, model.OrderStateAccepted, model.OrderStatePartiallyFilled},
	model.EventExpire: {model.OrderStateSubmitted, model.OrderStateAccepted, model.OrderStatePartiallyFilled},
}

var simpleTarget = map[model.EventKind]model.OrderState{
	model.EventAccept: model.OrderStateAccepted,
	model.EventReject: model.OrderStateRejected,
	model.EventCancel: model.OrderStateCancelled,
	model.EventExpire: model.OrderStateExpired,
}

// CanApply reports whether kind is legal from state, ignoring timestamps and
// fill quantities.
func CanApply(state model.OrderState, kind model.EventKind) bool {
	for _, s := range allowed[kind] {
		if s == state {
			return true
		}
	}
	return false
}

// NewOrder builds a SUBMITTED order with its creation history entry.
func NewOrder(id string, req model.ValidatedRequest, at time.Time) model.Order {
	return model.Order{
		ID:           id,
		Request:      req.Request.Clone(),
		State:        model.OrderStateSubmitted,
		FilledVolume: decimal.Zero,
		NeedsReview:  req.NeedsReview,
		ReviewReason: req.ReviewReason,
		CreatedAt:    at,
		UpdatedAt:    at,
		History: []model.HistoryEntry{{
			Seq:    1,
			At:     at,
			To:     model.OrderStateSubmitted,
			Reason: "submitted",
		}},
	}
}

// Apply returns the order after ev. On error o is returned unchanged.
// Terminal orders reject every event before the timestamp is looked at.
func Apply(o model.Order, ev model.Event) (model.Order, error) {
	if !ev.Kind.IsValid() {
		return o, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	if o.State.IsTerminal() {
		return o, fmt.Errorf("%w: %s on terminal %s", ErrIllegalTransition, ev.Kind, o.State)
	}
	if !ev.Timestamp.After(o.UpdatedAt) {
		return o, fmt.Errorf("%w: %s at %s not after %s", ErrStaleEvent, ev.Kind,
			ev.Timestamp.Format(time.RFC3339Nano), o.UpdatedAt.Format(time.RFC3339Nano))
	}
	if !CanApply(o.State, ev.Kind) {
		return o, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, ev.Kind, o.State)
	}

	next := o.Clone()
	qty := decimal.Zero
	to := simpleTarget[ev.Kind]
	if ev.Kind == model.EventFill {
		leaves := o.LeavesVolume()
		qty = ev.Quantity
		if qty.IsZero() {
			qty = leaves
		}
		if !qty.IsPositive() || qty.GreaterThan(leaves) {
			return o, fmt.Errorf("%w: %s with %s remaining", ErrInvalidFill, qty, leaves)
		}
		next.FilledVolume = o.FilledVolume.Add(qty)
		to = model.OrderStatePartiallyFilled
		if next.FilledVolume.GreaterThanOrEqual(o.Request.Volume) {
			to = model.OrderStateFilled
		}
	}

	next.State = to
	next.UpdatedAt = ev.Timestamp
	next.History = append(next.History, model.HistoryEntry{
		Seq:      len(o.History) + 1,
		At:       ev.Timestamp,
		From:     o.State,
		To:       to,
		Event:    ev.Kind,
		Quantity: qty,
		Reason:   ev.Reason,
	})

	return next, nil
}

// Replay walks history from SUBMITTED and returns the state it implies,
// verifying sequence numbers, timestamps and every transition on the way.
func Replay(history []model.HistoryEntry) (model.OrderState, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("%w: empty", ErrCorruptHistory)
	}
	first := history[0]
	if first.Seq != 1 || first.From != "" || first.To != model.OrderStateSubmitted {
		return "", fmt.Errorf("%w: bad creation entry %+v", ErrCorruptHistory, first)
	}

	state := first.To
	last := first.At
	for i, h := range history[1:] {
		if h.Seq != i+2 {
			return "", fmt.Errorf("%w: seq %d at position %d", ErrCorruptHistory, h.Seq, i+2)
		}
		if h.From != state {
			return "", fmt.Errorf("%w: entry %d from %s, expected %s", ErrCorruptHistory, h.Seq, h.From, state)
		}
		if !h.At.After(last) {
			return "", fmt.Errorf("%w: entry %d not after previous", ErrCorruptHistory, h.Seq)
		}
		if state.IsTerminal() || !CanApply(state, h.Event) || !targetAllowed(h.Event, h.To) {
			return "", fmt.Errorf("%w: entry %d %s %s->%s", ErrCorruptHistory, h.Seq, h.Event, h.From, h.To)
		}
		state = h.To
		last = h.At
	}

	return state, nil
}

func targetAllowed(kind model.EventKind, to model.OrderState) bool {
	if kind == model.EventFill {
		return to == model.OrderStateFilled || to == model.OrderStatePartiallyFilled
	}
	return simpleTarget[kind] == to
}
