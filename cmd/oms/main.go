package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/grafana/pyroscope-go"
	"github.com/joripage/order-manager/config"
	"github.com/joripage/order-manager/pkg/api"
	postgres_wrapper "github.com/joripage/order-manager/pkg/infra/postgres"
	"github.com/joripage/order-manager/pkg/logging"
	"github.com/joripage/order-manager/pkg/metrics"
	"github.com/joripage/order-manager/pkg/oms"
	"github.com/joripage/order-manager/pkg/oms/archive"
	fixgateway "github.com/joripage/order-manager/pkg/oms/fix"
	"github.com/joripage/order-manager/pkg/oms/registry"
	"github.com/joripage/order-manager/pkg/oms/repo"
	riskrule "github.com/joripage/order-manager/pkg/oms/risk_rule"
	"github.com/joripage/order-manager/pkg/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("order manager stopped", zap.Error(err))
	}
	logger.Info("exited cleanly")
}

func startProfiler(cfg config.PyroscopeConfig, serviceName string) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: serviceName,
		ServerAddress:   cfg.ServerAddress,
		Tags:            cfg.Tags,
		Logger:          zap.S(),
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = profiler.Stop() }, nil
}

func run(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	stopProfiler, err := startProfiler(cfg.Pyroscope, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer stopProfiler()

	redisClient, err := newRedisClient(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	js, err := openJournals(cfg.Journal, cfg.ServiceName, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := js.Close(); err != nil {
			logger.Warn("close journals", zap.Error(err))
		}
	}()

	reg := registry.New(cfg.Registry,
		registry.WithIDGenerator(newIDGenerator(cfg.IDs, redisClient)),
		registry.WithEventStore(js.store()),
		registry.WithLogger(logger.Named("registry")),
	)

	validator, err := riskrule.NewValidator(cfg.Validator, newPriceSource(cfg.MarketData, redisClient), logger.Named("validator"))
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry, func() float64 { return float64(reg.Live()) })

	opts := []oms.Option{
		oms.WithLogger(logger.Named("oms")),
		oms.WithReporters(m),
	}
	if !cfg.AutoAcceptEnabled() {
		opts = append(opts, oms.WithoutAutoAccept())
	}
	var apiOpts []api.Option
	if cfg.Archive.Enabled {
		archiver := archive.NewParquetArchiver(cfg.Archive.Dir)
		opts = append(opts, oms.WithArchiver(
			archiver,
			js.pruner(),
			cfg.Archive.Interval,
			cfg.Archive.Retention,
		))
		apiOpts = append(apiOpts, api.WithArchive(archiver))
	}
	if cfg.ReadModel.Enabled {
		db, err := postgres_wrapper.InitPostgresWithBackoff(ctx, cfg.OmsDB)
		if err != nil {
			return fmt.Errorf("connect read model: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		apiOpts = append(apiOpts, api.WithHistory(repo.NewHistory(repo.NewRepo(db))))
	}
	orderManager := oms.NewOMS(validator, reg, opts...)

	restored, err := js.restore(ctx, orderManager)
	if err != nil {
		return err
	}
	logger.Info("orders restored", zap.Int("count", restored), zap.Int64("live", reg.Live()))

	grpcServer := rpc.NewGRPCServer(rpc.NewServer(orderManager, m, logger.Named("rpc")), logger.Named("rpc"))
	adminServer := api.NewServer(cfg.Admin, orderManager, js.recent, reg.Live, promRegistry, logger.Named("api"), apiOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rpc.ListenAndServe(gctx, grpcServer, cfg.GRPC.ListenAddr, logger)
	})
	g.Go(func() error {
		return adminServer.Start(gctx)
	})
	g.Go(func() error {
		return orderManager.StartArchiver(gctx)
	})
	if cfg.FixGateway.Enabled {
		gateway := fixgateway.NewFixGateway(&cfg.FixGateway, orderManager, m, logger.Named("fix"))
		g.Go(func() error {
			return gateway.Start(gctx)
		})
	}

	return g.Wait()
}
