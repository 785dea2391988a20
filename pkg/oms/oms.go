// Package oms is the front door of the order manager: it validates incoming
// trade requests, registers them and feeds venue events into the lifecycle.
package oms

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/joripage/order-manager/pkg/logging"
	"github.com/joripage/order-manager/pkg/oms/lifecycle"
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/joripage/order-manager/pkg/oms/registry"
	riskrule "github.com/joripage/order-manager/pkg/oms/risk_rule"
	"go.uber.org/zap"
)

type OMS struct {
	validator Validator
	registry  *registry.Registry
	reporters []OrderReporter
	logger    *zap.Logger

	disableAutoAccept bool
	archive           archiveConfig
}

type Option func(*OMS)

func WithLogger(l *zap.Logger) Option {
	return func(s *OMS) { s.logger = l }
}

func WithReporters(r ...OrderReporter) Option {
	return func(s *OMS) { s.reporters = append(s.reporters, r...) }
}

// WithoutAutoAccept leaves new orders SUBMITTED until the venue acknowledges them.
func WithoutAutoAccept() Option {
	return func(s *OMS) { s.disableAutoAccept = true }
}

func NewOMS(validator Validator, reg *registry.Registry, opts ...Option) *OMS {
	s := &OMS{
		validator: validator,
		registry:  reg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates req, registers it and acknowledges it. The returned ID is
// valid even when the acknowledgement could not be recorded.
func (s *OMS) Submit(ctx context.Context, req model.TradeRequest) (string, error) {
	logger := logging.FromContext(ctx, s.logger)

	validated, err := s.validator.Validate(ctx, req)
	if err != nil {
		if ve, ok := riskrule.IsValidationError(err); ok {
			logger.Info("trade request rejected",
				zap.String("instrument", req.Instrument),
				zap.String("rule", ve.Rule),
				zap.String("reason", ve.Reason))
			return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return "", fmt.Errorf("validate trade request: %w", err)
	}

	id, err := s.registry.Create(ctx, validated)
	if err != nil {
		if errors.Is(err, registry.ErrCapacityExceeded) {
			logger.Warn("order rejected, registry full", zap.Int64("live", s.registry.Live()))
			return "", fmt.Errorf("%w: %w", ErrOverloaded, err)
		}
		return "", fmt.Errorf("create order: %w", err)
	}

	// the order exists from here on; nothing below may fail the call
	ctx = context.WithoutCancel(ctx)
	if created, ok := s.registry.Get(id); ok {
		s.report(ctx, created)
	}
	logger = logger.With(zap.String("order_id", id))
	logger.Info("order created",
		zap.String("instrument", validated.Request.Instrument),
		zap.String("side", string(validated.Request.Side)),
		zap.String("volume", validated.Request.Volume.String()),
		zap.Bool("needs_review", validated.NeedsReview))

	if !s.disableAutoAccept {
		accepted, err := s.registry.Transition(ctx, id, model.Event{Kind: model.EventAccept, Reason: "auto-accepted"})
		if err != nil {
			logger.Warn("auto accept failed", zap.Error(err))
		} else {
			s.report(ctx, accepted)
		}
	}

	return id, nil
}

// ApplyEvent feeds a downstream lifecycle event to its order. Rejected events
// are logged and returned, never fatal.
func (s *OMS) ApplyEvent(ctx context.Context, ev model.Event) (model.Order, error) {
	logger := logging.FromContext(ctx, s.logger).With(
		zap.String("order_id", ev.OrderID),
		zap.String("event", string(ev.Kind)))

	order, err := s.registry.Transition(ctx, ev.OrderID, ev)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound),
			errors.Is(err, lifecycle.ErrIllegalTransition),
			errors.Is(err, lifecycle.ErrStaleEvent),
			errors.Is(err, lifecycle.ErrInvalidFill),
			errors.Is(err, lifecycle.ErrUnknownEvent):
			logger.Warn("event dropped", zap.Error(err))
		default:
			logger.Error("event not applied", zap.Error(err))
		}
		return model.Order{}, err
	}

	logger.Debug("event applied",
		zap.String("state", string(order.State)),
		zap.String("filled", order.FilledVolume.String()))
	s.report(context.WithoutCancel(ctx), order)
	return order, nil
}

func (s *OMS) Get(id string) (model.Order, bool) {
	return s.registry.Get(id)
}

func (s *OMS) List(filter model.OrderFilter) iter.Seq[model.Order] {
	return s.registry.List(filter)
}

// Restore reloads journaled orders; call it before serving.
func (s *OMS) Restore(orders []model.Order) error {
	if err := s.registry.Restore(orders); err != nil {
		return err
	}
	s.logger.Info("orders restored",
		zap.Int("count", len(orders)),
		zap.Int64("live", s.registry.Live()))
	return nil
}

// ReserveIDs keeps IDs of archived orders out of circulation.
func (s *OMS) ReserveIDs(ids []string) {
	s.registry.ReserveIDs(ids)
}

func (s *OMS) report(ctx context.Context, order model.Order) {
	for _, r := range s.reporters {
		r.OnOrderReport(ctx, order)
	}
}
