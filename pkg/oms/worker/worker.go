package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	kafkawrapper "github.com/joripage/order-manager/pkg/kafka_wrapper"
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/joripage/order-manager/pkg/oms/repo"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var ErrMalformedEvent = errors.New("malformed order event")

type Config struct {
	// MaxRetryElapsed bounds how long one event is retried against the database.
	MaxRetryElapsed time.Duration `yaml:"max_retry_elapsed"`
	FetchBatch      int           `yaml:"fetch_batch"`
	FetchWait       time.Duration `yaml:"fetch_wait"`
}

func (c *Config) setDefaults() {
	if c.MaxRetryElapsed <= 0 {
		c.MaxRetryElapsed = 30 * time.Second
	}
	if c.FetchBatch <= 0 {
		c.FetchBatch = 10
	}
	if c.FetchWait <= 0 {
		c.FetchWait = time.Second
	}
}

// Worker projects journal events into the SQL read model.
type Worker struct {
	repo   repo.IRepo
	cfg    Config
	logger *zap.Logger
}

func NewWorker(r repo.IRepo, cfg Config, logger *zap.Logger) *Worker {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		repo:   r,
		cfg:    cfg,
		logger: logger,
	}
}

func decodeEvent(data []byte) (*model.OrderEvent, error) {
	var ev model.OrderEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if ev.EventID == "" || ev.OrderID == "" {
		return nil, fmt.Errorf("%w: missing ids", ErrMalformedEvent)
	}
	return &ev, nil
}

// HandleEvent stores one event and upserts its order row.
func (w *Worker) HandleEvent(ctx context.Context, ev *model.OrderEvent) error {
	return w.HandleBatch(ctx, []*model.OrderEvent{ev})
}

// HandleBatch stores the events and upserts each order's newest snapshot in
// one transaction. Duplicates and older snapshots are absorbed by the repo.
func (w *Worker) HandleBatch(ctx context.Context, evs []*model.OrderEvent) error {
	if len(evs) == 0 {
		return nil
	}

	evRecs := make([]*repo.OrderEventRecord, 0, len(evs))
	newest := make(map[string]*model.OrderEvent, len(evs))
	var orderIDs []string
	for _, ev := range evs {
		rec, err := repo.NewOrderEventRecord(ev)
		if err != nil {
			return err
		}
		evRecs = append(evRecs, rec)

		cur, seen := newest[ev.OrderID]
		if !seen {
			orderIDs = append(orderIDs, ev.OrderID)
		}
		if !seen || ev.Seq > cur.Seq {
			newest[ev.OrderID] = ev
		}
	}

	op := func() error {
		return w.repo.Transaction(ctx, func(tx repo.IRepo) error {
			if _, err := tx.OrderEvent().BulkCreate(ctx, evRecs); err != nil {
				return err
			}
			for _, id := range orderIDs {
				if err := tx.Order().Upsert(ctx, repo.NewOrderRecord(newest[id].Order)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = w.cfg.MaxRetryElapsed
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// decodeBatch keeps the well-formed payloads. Malformed ones are logged and
// dropped so they are acknowledged instead of redelivered forever.
func (w *Worker) decodeBatch(payloads [][]byte) []*model.OrderEvent {
	evs := make([]*model.OrderEvent, 0, len(payloads))
	for _, data := range payloads {
		ev, err := decodeEvent(data)
		if err != nil {
			w.logger.Warn("drop event", zap.Error(err))
			continue
		}
		evs = append(evs, ev)
	}
	return evs
}

func (w *Worker) handlePayloads(ctx context.Context, payloads [][]byte) error {
	evs := w.decodeBatch(payloads)
	if err := w.HandleBatch(ctx, evs); err != nil {
		w.logger.Error("persist events", zap.Int("count", len(evs)), zap.Error(err))
		return err
	}
	w.logger.Debug("persisted events", zap.Int("count", len(evs)))
	return nil
}

func (w *Worker) HandleKafkaBatch(ctx context.Context, msgs []kafkawrapper.Message) error {
	payloads := make([][]byte, len(msgs))
	for i, m := range msgs {
		payloads[i] = m.Value
	}
	return w.handlePayloads(ctx, payloads)
}

func (w *Worker) StartKafkaConsumer(ctx context.Context, cg *kafkawrapper.ConsumerGroup) error {
	return cg.Run(ctx, w.HandleKafkaBatch)
}

// StartNatsConsumer pulls from a durable JetStream consumer until ctx ends.
func (w *Worker) StartNatsConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	sub, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}
	defer func() {
		if err := sub.Drain(); err != nil {
			w.logger.Warn("drain subscription", zap.Error(err))
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.FetchWait)
		msgs, err := sub.Fetch(w.cfg.FetchBatch, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) || ctx.Err() != nil {
				continue
			}
			w.logger.Warn("fetch", zap.Error(err))
			continue
		}

		payloads := make([][]byte, len(msgs))
		for i, msg := range msgs {
			payloads[i] = msg.Data
		}
		err = w.handlePayloads(ctx, payloads)
		for _, msg := range msgs {
			if err != nil {
				_ = msg.Nak()
				continue
			}
			_ = msg.Ack()
		}
	}
}
