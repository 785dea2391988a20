// Package venuesim is a FIX 4.4 acceptor that plays the venue side for the
// OMS gateway: it pushes execution reports on demand.
package venuesim

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no logged on session")

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[quickfix.SessionID]struct{}
	cumQty   map[string]decimal.Decimal
	execSeq  int64
	now      func() time.Time
	send     func(m quickfix.Messagable, sessionID quickfix.SessionID) error
}

func newApplication(logger *zap.Logger) *Application {
	return &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		logger:        logger,
		sessions:      map[quickfix.SessionID]struct{}{},
		cumQty:        map[string]decimal.Decimal{},
		now:           time.Now,
		send:          quickfix.SendToTarget,
	}
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.mu.Lock()
	a.sessions[sessionID] = struct{}{}
	a.mu.Unlock()
	a.logger.Info("fix logon", zap.String("session", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.mu.Lock()
	delete(a.sessions, sessionID)
	a.mu.Unlock()
	a.logger.Info("fix logout", zap.String("session", sessionID.String()))
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
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

// Send pushes r to every logged on session.
func (a *Application) Send(r Report) error {
	a.mu.Lock()
	if len(a.sessions) == 0 {
		a.mu.Unlock()
		return ErrNoSession
	}
	if r.At.IsZero() {
		r.At = a.now()
	}
	a.execSeq++
	execID := "E" + strconv.FormatInt(a.execSeq, 10)
	cum := a.cumQty[r.ClOrdID].Add(r.LastQty)
	a.cumQty[r.ClOrdID] = cum
	sessions := make([]quickfix.SessionID, 0, len(a.sessions))
	for s := range a.sessions {
		sessions = append(sessions, s)
	}
	a.mu.Unlock()

	er := buildExecutionReport(r, execID, cum)
	var errs []error
	for _, s := range sessions {
		if err := a.send(er, s); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

type Simulator struct {
	app      *Application
	acceptor *quickfix.Acceptor
}

func NewSimulator(configFilepath string, logger *zap.Logger) (*Simulator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := os.Open(configFilepath)
	if err != nil {
		return nil, fmt.Errorf("error opening %v, %v", configFilepath, err)
	}
	defer cfg.Close() // nolint

	appSettings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		return nil, fmt.Errorf("error reading cfg: %s,", err)
	}

	app := newApplication(logger)
	logFactory, err := file.NewLogFactory(appSettings)
	if err != nil {
		return nil, err
	}
	acceptor, err := quickfix.NewAcceptor(app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return nil, fmt.Errorf("unable to create acceptor: %s", err)
	}
	return &Simulator{app: app, acceptor: acceptor}, nil
}

func (s *Simulator) Start() error {
	if err := s.acceptor.Start(); err != nil {
		return fmt.Errorf("unable to start FIX acceptor: %s", err)
	}
	return nil
}

func (s *Simulator) Stop() {
	s.acceptor.Stop()
}

func (s *Simulator) Send(r Report) error {
	return s.app.Send(r)
}
