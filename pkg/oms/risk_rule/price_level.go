package riskrule

import (
	"github.com/joripage/order-manager/pkg/oms/model"
)

// ProtectionRule rejects negative stop-loss and take-profit levels.
type ProtectionRule struct{}

func (ProtectionRule) Name() string { return "protection" }

func (r ProtectionRule) Check(req *model.TradeRequest, _ Reference) error {
	if req.StopLoss != nil && req.StopLoss.IsNegative() {
		return reject(r.Name(), "stop loss %s is negative", req.StopLoss)
	}
	if req.TakeProfit != nil && req.TakeProfit.IsNegative() {
		return reject(r.Name(), "take profit %s is negative", req.TakeProfit)
	}
	return nil
}

// PriceLevelRule checks that protective levels sit on the right side of the
// reference price: below it for a BUY stop-loss, above it for a BUY
// take-profit, and the inverse for SELL. It passes when no price is known.
type PriceLevelRule struct{}

func (PriceLevelRule) Name() string { return "price_level" }

func (r PriceLevelRule) Check(req *model.TradeRequest, ref Reference) error {
	if !ref.Known {
		return nil
	}

	sl, tp := req.StopLoss, req.TakeProfit
	switch req.Side {
	case model.OrderSideBuy:
		if sl != nil && !sl.LessThan(ref.Price) {
			return reject(r.Name(), "buy stop loss %s must be below reference %s", sl, ref.Price)
		}
		if tp != nil && !tp.GreaterThan(ref.Price) {
			return reject(r.Name(), "buy take profit %s must be above reference %s", tp, ref.Price)
		}
	case model.OrderSideSell:
		if sl != nil && !sl.GreaterThan(ref.Price) {
			return reject(r.Name(), "sell stop loss %s must be above reference %s", sl, ref.Price)
		}
		if tp != nil && !tp.LessThan(ref.Price) {
			return reject(r.Name(), "sell take profit %s must be below reference %s", tp, ref.Price)
		}
	}
	return nil
}
