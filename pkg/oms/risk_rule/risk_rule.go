package riskrule

import (
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// Reference is the market reference price seen by the rules. Known is false
// when no price could be obtained.
type Reference struct {
	Price decimal.Decimal
	Known bool
}

type RiskRule interface {
	Name() string
	Check(req *model.TradeRequest, ref Reference) error
}
