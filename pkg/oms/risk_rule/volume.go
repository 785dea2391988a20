package riskrule

import (
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/shopspring/decimal"
)

type SideRule struct{}

func (SideRule) Name() string { return "side" }

func (r SideRule) Check(req *model.TradeRequest, _ Reference) error {
	if !req.Side.IsValid() {
		return reject(r.Name(), "side %q is not BUY or SELL", req.Side)
	}
	return nil
}

// VolumeRule requires a positive volume not above max. A zero max is unlimited.
type VolumeRule struct {
	max decimal.Decimal
}

func NewVolumeRule(max decimal.Decimal) *VolumeRule {
	return &VolumeRule{max: max}
}

func (r *VolumeRule) Name() string { return "volume" }

func (r *VolumeRule) Check(req *model.TradeRequest, _ Reference) error {
	if !req.Volume.IsPositive() {
		return reject(r.Name(), "volume %s must be positive", req.Volume)
	}
	if r.max.IsPositive() && req.Volume.GreaterThan(r.max) {
		return reject(r.Name(), "volume %s exceeds maximum %s", req.Volume, r.max)
	}
	return nil
}
