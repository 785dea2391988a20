package riskrule

import (
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// LotSizeRule holds the volume step per instrument.
type LotSizeRule struct {
	steps map[string]decimal.Decimal
}

func NewLotSizeRule(steps map[string]decimal.Decimal) *LotSizeRule {
	return &LotSizeRule{steps: steps}
}

func (r *LotSizeRule) Name() string { return "lot_size" }

func (r *LotSizeRule) Check(req *model.TradeRequest, _ Reference) error {
	step, ok := r.steps[req.Instrument]
	if !ok || !step.IsPositive() { // no config -> no rule
		return nil
	}
	if !req.Volume.Mod(step).IsZero() {
		return reject(r.Name(), "volume %s is not a multiple of lot step %s", req.Volume, step)
	}
	return nil
}
