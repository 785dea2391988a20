package rpc

import (
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/joripage/order-manager/pkg/rpc/omspb"
	"github.com/shopspring/decimal"
)

// ServiceName is the health-check name of the order manager service.
var ServiceName = omspb.OrderManager_ServiceDesc.ServiceName

// toModel maps the wire request. Zero stop-loss or take-profit means unset.
func toModel(in *omspb.TradeRequest) model.TradeRequest {
	req := model.TradeRequest{
		Instrument: in.GetInstrument(),
		Side:       model.ParseSide(in.GetSide()),
		Volume:     decimal.NewFromFloat(in.GetVolume()),
	}
	if sl := in.GetStopLoss(); sl != 0 {
		d := decimal.NewFromFloat(sl)
		req.StopLoss = &d
	}
	if tp := in.GetTakeProfit(); tp != 0 {
		d := decimal.NewFromFloat(tp)
		req.TakeProfit = &d
	}
	return req
}
