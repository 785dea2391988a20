package fixgateway

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joripage/go_util/pkg/shardqueue"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"go.uber.org/zap"
)

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	cfg        AppConfig
	shardQueue *shardqueue.Shardqueue
	onReport   func(ExecutionReport)
	logger     *zap.Logger
}

type AppConfig struct {
	EnableShardQueue bool `yaml:"enable_shard_queue"`
	NumShards        int  `yaml:"num_shards"`
	QueueSize        int  `yaml:"queue_size"`
}

type inboundMsg struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

const (
	defaultNumShards = 16
	defaultQueueSize = 100_000
)

func newApplication(cfg AppConfig, onReport func(ExecutionReport), logger *zap.Logger) *Application {
	if cfg.NumShards <= 0 {
		cfg.NumShards = defaultNumShards
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
		onReport:      onReport,
		logger:        logger,
	}

	app.AddRoute(executionreport.Route(app.onExecutionReport))

	if app.cfg.EnableShardQueue {
		app.shardQueue = shardqueue.NewShardQueue(cfg.NumShards, cfg.QueueSize)
		app.shardQueue.Start(func(msg interface{}) error {
			if v, ok := msg.(*inboundMsg); ok {
				if err := app.Route(v.msg, v.sessionID); err != nil {
					app.logger.Warn("route execution report", zap.Error(err))
				}
			}
			return nil
		})
	}

	return app
}

func loadSettings(path string) (*quickfix.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %v, %v", path, err)
	}
	settings, err := quickfix.ParseSettings(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error reading cfg: %w", err)
	}
	return settings, nil
}

// newInitiator connects out to the venue sessions described in settings.
func newInitiator(app *Application, settings *quickfix.Settings) (*quickfix.Initiator, error) {
	logFactory, err := file.NewLogFactory(settings)
	if err != nil {
		return nil, fmt.Errorf("unable to create log factory: %w", err)
	}
	initiator, err := quickfix.NewInitiator(app, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		return nil, fmt.Errorf("unable to create initiator: %w", err)
	}
	return initiator, nil
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info("fix session logon", zap.String("session", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Warn("fix session logout", zap.String("session", sessionID.String()))
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) (reject quickfix.MessageRejectError) {
	if a.cfg.EnableShardQueue {
		a.shardQueue.Shard(getRoutingKey(msg, sessionID), &inboundMsg{msg, sessionID})
		return nil
	}

	return a.Route(msg, sessionID)
}

func (a *Application) onExecutionReport(msg executionreport.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	er, err := parseExecutionReport(msg, sessionID)
	if err != nil {
		return err
	}
	a.onReport(er)
	return nil
}
