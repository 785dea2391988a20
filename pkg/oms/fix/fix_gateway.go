// Package fixgateway receives venue execution reports over FIX 4.4 and turns
// them into order lifecycle events.
package fixgateway

import (
	"context"

	"github.com/joripage/order-manager/pkg/oms/model"
	"go.uber.org/zap"
)

// EventSink is where lifecycle events go; *oms.OMS satisfies it.
type EventSink interface {
	ApplyEvent(ctx context.Context, ev model.Event) (model.Order, error)
}

type EventObserver interface {
	ObserveVenueEvent(kind model.EventKind, err error)
}

type FixGatewayConfig struct {
	Enabled        bool      `yaml:"enabled"`
	ConfigFilepath string    `yaml:"config_filepath"`
	App            AppConfig `yaml:"app"`
}

type FixGateway struct {
	cfg      *FixGatewayConfig
	app      *Application
	sink     EventSink
	observer EventObserver
	logger   *zap.Logger
}

func NewFixGateway(cfg *FixGatewayConfig, sink EventSink, observer EventObserver, logger *zap.Logger) *FixGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FixGateway{
		cfg:      cfg,
		sink:     sink,
		observer: observer,
		logger:   logger,
	}
	s.app = newApplication(cfg.App, s.handleExecutionReport, logger)
	return s
}

// Start connects to the venue and blocks until ctx is done.
func (s *FixGateway) Start(ctx context.Context) error {
	settings, err := loadSettings(s.cfg.ConfigFilepath)
	if err != nil {
		return err
	}
	initiator, err := newInitiator(s.app, settings)
	if err != nil {
		return err
	}
	if err := initiator.Start(); err != nil {
		return err
	}
	s.logger.Info("fix initiator started", zap.String("settings", s.cfg.ConfigFilepath))

	<-ctx.Done()
	initiator.Stop()
	return nil
}

func (s *FixGateway) handleExecutionReport(er ExecutionReport) {
	logger := s.logger.With(
		zap.String("cl_ord_id", er.ClOrdID),
		zap.String("exec_id", er.ExecID),
		zap.String("exec_type", string(er.ExecType)))

	ev, ok, err := executionReportToEvent(er)
	if err != nil {
		logger.Warn("bad execution report", zap.Error(err))
		return
	}
	if !ok {
		logger.Debug("execution report ignored")
		return
	}

	_, err = s.sink.ApplyEvent(context.Background(), ev)
	if s.observer != nil {
		s.observer.ObserveVenueEvent(ev.Kind, err)
	}
}
