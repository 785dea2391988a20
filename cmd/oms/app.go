package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joripage/order-manager/config"
	redis_wrapper "github.com/joripage/order-manager/pkg/infra/redis"
	kafkawrapper "github.com/joripage/order-manager/pkg/kafka_wrapper"
	"github.com/joripage/order-manager/pkg/marketdata"
	"github.com/joripage/order-manager/pkg/oms"
	eventstore "github.com/joripage/order-manager/pkg/oms/event_store"
	"github.com/joripage/order-manager/pkg/oms/registry"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// journals holds every configured event store plus what must be closed.
type journals struct {
	recent  *eventstore.InMemoryEventStore
	pebble  *eventstore.PebbleEventStore
	stores  []eventstore.EventStore
	pruners []oms.JournalPruner
	closers []func() error
}

func (j *journals) store() eventstore.EventStore {
	return eventstore.Fanout(j.stores...)
}

func (j *journals) pruner() oms.JournalPruner {
	return oms.MultiPruner(j.pruners...)
}

// restore loads the last snapshot of every journalled order and reserves the
// IDs of orders already archived out of the journal.
func (j *journals) restore(ctx context.Context, o *oms.OMS) (int, error) {
	if j.pebble == nil {
		return 0, nil
	}
	archived, err := j.pebble.ArchivedIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list archived ids: %w", err)
	}
	o.ReserveIDs(archived)

	orders, err := j.pebble.Replay(ctx)
	if err != nil {
		return 0, fmt.Errorf("replay journal: %w", err)
	}
	if err := o.Restore(orders); err != nil {
		return 0, fmt.Errorf("restore orders: %w", err)
	}
	return len(orders), nil
}

func (j *journals) Close() error {
	var errs []error
	for i := len(j.closers) - 1; i >= 0; i-- {
		errs = append(errs, j.closers[i]())
	}
	return errors.Join(errs...)
}

func openJournals(cfg config.JournalConfig, serviceName string, logger *zap.Logger) (*journals, error) {
	j := &journals{recent: eventstore.NewInMemoryEventStore(cfg.RecentSize)}
	j.stores = append(j.stores, j.recent)
	j.pruners = append(j.pruners, j.recent)

	if cfg.Pebble.Enabled {
		ps, err := eventstore.NewPebbleEventStore(cfg.Pebble.Path, cfg.Pebble.Sync)
		if err != nil {
			return nil, err
		}
		j.pebble = ps
		j.stores = append(j.stores, ps)
		j.pruners = append(j.pruners, ps)
		j.closers = append(j.closers, ps.Close)
		logger.Info("pebble journal opened", zap.String("path", cfg.Pebble.Path))
	}

	if cfg.Kafka.Enabled {
		producer := kafkawrapper.NewProducer(cfg.Kafka.Producer)
		j.stores = append(j.stores, eventstore.NewKafkaEventStore(producer, cfg.Kafka.Topic))
		j.closers = append(j.closers, producer.Close)
		logger.Info("kafka journal enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Nats.Enabled {
		nc, err := nats.Connect(cfg.Nats.URL, nats.Name(serviceName))
		if err != nil {
			_ = j.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		j.closers = append(j.closers, nc.Drain)
		js, err := nc.JetStream()
		if err != nil {
			_ = j.Close()
			return nil, err
		}
		if err := eventstore.EnsureStream(js, cfg.Nats.Stream, cfg.Nats.Subject); err != nil {
			_ = j.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Nats.Stream, err)
		}
		j.stores = append(j.stores, eventstore.NewNatsEventStore(js, cfg.Nats.Subject))
		logger.Info("nats journal enabled", zap.String("subject", cfg.Nats.Subject))
	}

	return j, nil
}

// newRedisClient connects only when a component reads from redis.
func newRedisClient(ctx context.Context, cfg *config.AppConfig) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	return redis_wrapper.InitRedis(ctx, cfg.Redis)
}

func newPriceSource(cfg config.MarketDataConfig, client redis.UniversalClient) marketdata.PriceSource {
	if cfg.Source == "redis" {
		return marketdata.NewRedisSource(client, cfg.RedisPrefix)
	}
	return marketdata.NewStaticSource(cfg.Static)
}

func newIDGenerator(cfg config.IDConfig, client redis.UniversalClient) registry.IDGenerator {
	switch cfg.Format {
	case config.IDFormatUUID:
		return registry.NewUUIDGenerator(cfg.Prefix)
	case config.IDFormatRedis:
		return registry.NewRedisIDGenerator(client, cfg.RedisKey, cfg.Prefix)
	default:
		return registry.NewSequenceIDGenerator(cfg.Prefix)
	}
}
