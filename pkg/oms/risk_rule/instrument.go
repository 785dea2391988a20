package riskrule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joripage/order-manager/pkg/oms/model"
)

// InstrumentRule requires a non-empty instrument that is either on the
// allow-list or matches the pattern. With neither configured any non-empty
// instrument passes.
type InstrumentRule struct {
	allowed map[string]struct{}
	pattern *regexp.Regexp
}

func NewInstrumentRule(allowed []string, pattern string) (*InstrumentRule, error) {
	r := &InstrumentRule{allowed: make(map[string]struct{}, len(allowed))}
	for _, a := range allowed {
		r.allowed[a] = struct{}{}
	}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("instrument pattern: %w", err)
		}
		r.pattern = re
	}
	return r, nil
}

func (r *InstrumentRule) Name() string { return "instrument" }

func (r *InstrumentRule) Check(req *model.TradeRequest, _ Reference) error {
	if strings.TrimSpace(req.Instrument) == "" {
		return reject(r.Name(), "instrument is empty")
	}
	if len(r.allowed) == 0 && r.pattern == nil {
		return nil
	}
	if _, ok := r.allowed[req.Instrument]; ok {
		return nil
	}
	if r.pattern != nil && r.pattern.MatchString(req.Instrument) {
		return nil
	}
	return reject(r.Name(), "instrument %q is not allowed", req.Instrument)
}
