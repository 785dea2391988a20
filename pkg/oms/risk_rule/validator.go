package riskrule

import (
	"context"
	"errors"
	"time"

	"github.com/joripage/order-manager/pkg/marketdata"
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ValidatorConfig struct {
	AllowedInstruments []string                   `yaml:"allowed_instruments"`
	InstrumentPattern  string                     `yaml:"instrument_pattern"`
	MaxVolume          decimal.Decimal            `yaml:"max_volume"` // 0 = unlimited
	LotSteps           map[string]decimal.Decimal `yaml:"lot_steps"`
	PriceTimeout       time.Duration              `yaml:"price_timeout"`
}

const defaultPriceTimeout = 200 * time.Millisecond

// Validator runs the rule chain in order; the first failing rule wins.
type Validator struct {
	rules        []RiskRule
	prices       marketdata.PriceSource
	priceTimeout time.Duration
	logger       *zap.Logger
}

func NewValidator(cfg ValidatorConfig, prices marketdata.PriceSource, logger *zap.Logger) (*Validator, error) {
	instrument, err := NewInstrumentRule(cfg.AllowedInstruments, cfg.InstrumentPattern)
	if err != nil {
		return nil, err
	}
	if cfg.PriceTimeout <= 0 {
		cfg.PriceTimeout = defaultPriceTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Validator{
		rules: []RiskRule{
			instrument,
			SideRule{},
			NewVolumeRule(cfg.MaxVolume),
			NewLotSizeRule(cfg.LotSteps),
			ProtectionRule{},
			PriceLevelRule{},
		},
		prices:       prices,
		priceTimeout: cfg.PriceTimeout,
		logger:       logger,
	}, nil
}

// Check is the deterministic part of validation: same request and reference,
// same answer.
func (v *Validator) Check(req model.TradeRequest, ref Reference) (model.ValidatedRequest, error) {
	for _, rule := range v.rules {
		if err := rule.Check(&req, ref); err != nil {
			return model.ValidatedRequest{}, err
		}
	}

	out := model.ValidatedRequest{Request: req.Clone()}
	if ref.Known {
		p := ref.Price
		out.ReferencePrice = &p
	} else if req.StopLoss != nil || req.TakeProfit != nil {
		out.NeedsReview = true
		out.ReviewReason = "reference price unavailable, price levels not checked"
	}
	return out, nil
}

// Validate looks up the reference price under a timeout and runs Check. An
// unavailable price never rejects; the order is flagged for review instead.
func (v *Validator) Validate(ctx context.Context, req model.TradeRequest) (model.ValidatedRequest, error) {
	ref := Reference{}
	if req.StopLoss != nil || req.TakeProfit != nil {
		// static rules first so a bad request never waits on market data
		if _, err := v.Check(req, ref); err != nil {
			return model.ValidatedRequest{}, err
		}
		ref = v.lookup(ctx, req.Instrument)
	}
	return v.Check(req, ref)
}

type priceResult struct {
	price decimal.Decimal
	ok    bool
	err   error
}

func (v *Validator) lookup(ctx context.Context, instrument string) Reference {
	if v.prices == nil {
		return Reference{}
	}

	ctx, cancel := context.WithTimeout(ctx, v.priceTimeout)
	defer cancel()

	// buffered so a source that ignores ctx can finish after we gave up
	ch := make(chan priceResult, 1)
	go func() {
		p, ok, err := v.prices.ReferencePrice(ctx, instrument)
		ch <- priceResult{price: p, ok: ok, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			v.logger.Warn("reference price lookup failed",
				zap.String("instrument", instrument), zap.Error(res.err))
			return Reference{}
		}
		return Reference{Price: res.price, Known: res.ok}
	case <-ctx.Done():
		v.logger.Warn("reference price lookup timed out",
			zap.String("instrument", instrument), zap.Error(ctx.Err()))
		return Reference{}
	}
}

// IsValidationError extracts the rejecting rule, if err came from a rule.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
