package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joripage/order-manager/config"
	"github.com/joripage/order-manager/pkg/infra"
	postgres_wrapper "github.com/joripage/order-manager/pkg/infra/postgres"
	kafkawrapper "github.com/joripage/order-manager/pkg/kafka_wrapper"
	"github.com/joripage/order-manager/pkg/logging"
	eventstore "github.com/joripage/order-manager/pkg/oms/event_store"
	"github.com/joripage/order-manager/pkg/oms/repo"
	"github.com/joripage/order-manager/pkg/oms/worker"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	var (
		configFile string
		migrate    bool
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.BoolVar(&migrate, "migrate", false, "Apply schema migrations before consuming")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger, err := logging.Setup(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // nolint

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, migrate, logger); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}

func openDB(ctx context.Context, cfg *config.AppConfig, migrate bool) (*gorm.DB, error) {
	if cfg.OmsDB == nil {
		return nil, fmt.Errorf("oms_db is not configured")
	}
	if migrate {
		return infra.GetMigrateTool().ConnectAndMigrate(ctx, cfg.OmsDB, infra.DefaultMigrationSource)
	}
	return postgres_wrapper.InitPostgresWithBackoff(ctx, cfg.OmsDB)
}

func run(ctx context.Context, cfg *config.AppConfig, migrate bool, logger *zap.Logger) error {
	db, err := openDB(ctx, cfg, migrate)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	w := worker.NewWorker(repo.NewRepo(db), cfg.Worker.Persist, logger.Named("worker"))

	switch cfg.Worker.Source {
	case config.WorkerSourceNats:
		nc, err := nats.Connect(cfg.Journal.Nats.URL, nats.Name(cfg.ServiceName+"-worker"))
		if err != nil {
			return err
		}
		defer nc.Drain() // nolint

		js, err := nc.JetStream()
		if err != nil {
			return err
		}
		if err := eventstore.EnsureStream(js, cfg.Journal.Nats.Stream, cfg.Journal.Nats.Subject); err != nil {
			return err
		}
		logger.Info("consuming nats", zap.String("subject", cfg.Journal.Nats.Subject), zap.String("durable", cfg.Worker.Durable))
		return w.StartNatsConsumer(ctx, js, cfg.Journal.Nats.Subject, cfg.Worker.Durable)

	default:
		cg, err := kafkawrapper.NewConsumerGroup(cfg.Worker.Kafka, logger.Named("kafka"))
		if err != nil {
			return err
		}
		defer cg.Close() // nolint

		logger.Info("consuming kafka", zap.String("topic", cfg.Worker.Kafka.Topic), zap.String("group", cfg.Worker.Kafka.GroupID))
		return w.StartKafkaConsumer(ctx, cg)
	}
}
