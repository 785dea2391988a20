package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// ParseSide normalizes the letter case of s. Unknown values are returned as-is
// so the validator can reject them with a reason.
func ParseSide(s string) OrderSide {
	side := OrderSide(strings.ToUpper(strings.TrimSpace(s)))
	switch side {
	case OrderSideBuy, OrderSideSell:
		return side
	}
	return OrderSide(s)
}

func (s OrderSide) IsValid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// TradeRequest is the inbound order intent handed over by the RPC boundary.
type TradeRequest struct {
	Instrument string           `json:"instrument"`
	Side       OrderSide        `json:"side"`
	Volume     decimal.Decimal  `json:"volume"`
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
}

func (r TradeRequest) Clone() TradeRequest {
	c := r
	if r.StopLoss != nil {
		v := *r.StopLoss
		c.StopLoss = &v
	}
	if r.TakeProfit != nil {
		v := *r.TakeProfit
		c.TakeProfit = &v
	}
	return c
}

// ValidatedRequest is a TradeRequest that passed every rule. NeedsReview is set
// when the reference price was unavailable and the price check was skipped.
type ValidatedRequest struct {
	Request        TradeRequest
	ReferencePrice *decimal.Decimal
	NeedsReview    bool
	ReviewReason   string
}
