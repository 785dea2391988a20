package main

import (
	"encoding/json"
	"flag"

	"github.com/joripage/order-manager/config"
	"github.com/joripage/order-manager/pkg/infra"
	"github.com/joripage/order-manager/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	var (
		configFile string
		source     string
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&source, "source", infra.DefaultMigrationSource, "Migration source URL")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	if _, err := logging.Setup(cfg.LogLevel); err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	if cfg.OmsDB == nil {
		zap.S().Fatal("oms_db is not configured")
	}

	mgTool := infra.GetMigrateTool()
	if err := mgTool.Migrate(source, cfg.OmsDB.MigrationConnURL); err != nil {
		zap.S().Fatalf("migrate: %v", err)
	}
}
