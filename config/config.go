package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/joripage/order-manager/pkg/api"
	postgres_wrapper "github.com/joripage/order-manager/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/order-manager/pkg/infra/redis"
	kafkawrapper "github.com/joripage/order-manager/pkg/kafka_wrapper"
	fixgateway "github.com/joripage/order-manager/pkg/oms/fix"
	"github.com/joripage/order-manager/pkg/oms/registry"
	riskrule "github.com/joripage/order-manager/pkg/oms/risk_rule"
	"github.com/joripage/order-manager/pkg/oms/worker"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	IDFormatSequence = "sequence"
	IDFormatUUID     = "uuid"
	IDFormatRedis    = "redis"

	WorkerSourceKafka = "kafka"
	WorkerSourceNats  = "nats"
)

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	LogLevel    string                           `yaml:"log_level"`
	GRPC        GRPCConfig                       `yaml:"grpc"`
	Admin       api.Config                       `yaml:"admin"`
	Registry    registry.Config                  `yaml:"registry"`
	Validator   riskrule.ValidatorConfig         `yaml:"validator"`
	AutoAccept  *bool                            `yaml:"auto_accept"`
	MarketData  MarketDataConfig                 `yaml:"market_data"`
	IDs         IDConfig                         `yaml:"ids"`
	Journal     JournalConfig                    `yaml:"journal"`
	Archive     ArchiveConfig                    `yaml:"archive"`
	ReadModel   ReadModelConfig                  `yaml:"read_model"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	OmsDB       *postgres_wrapper.PostgresConfig `yaml:"oms_db"`
	Worker      WorkerConfig                     `yaml:"worker"`
	FixGateway  fixgateway.FixGatewayConfig      `yaml:"fix_gateway"`
	Pyroscope   PyroscopeConfig                  `yaml:"pyroscope"`
}

type GRPCConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type MarketDataConfig struct {
	// Source is "static" or "redis".
	Source      string                     `yaml:"source"`
	Static      map[string]decimal.Decimal `yaml:"static"`
	RedisPrefix string                     `yaml:"redis_prefix"`
}

type IDConfig struct {
	Format   string `yaml:"format"`
	Prefix   string `yaml:"prefix"`
	RedisKey string `yaml:"redis_key"`
}

type PebbleJournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Sync    bool   `yaml:"sync"`
}

type KafkaJournalConfig struct {
	Enabled  bool                        `yaml:"enabled"`
	Topic    string                      `yaml:"topic"`
	Producer kafkawrapper.ProducerConfig `yaml:"producer"`
}

type NatsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

type JournalConfig struct {
	RecentSize int                 `yaml:"recent_size"`
	Pebble     PebbleJournalConfig `yaml:"pebble"`
	Kafka      KafkaJournalConfig  `yaml:"kafka"`
	Nats       NatsConfig          `yaml:"nats"`
}

type ArchiveConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	Interval  time.Duration `yaml:"interval"`
	Retention time.Duration `yaml:"retention"`
}

// ReadModelConfig lets the admin API answer for evicted orders from oms_db,
// the tables the worker fills.
type ReadModelConfig struct {
	Enabled bool `yaml:"enabled"`
}

type WorkerConfig struct {
	Source  string                      `yaml:"source"`
	Kafka   kafkawrapper.ConsumerConfig `yaml:"kafka"`
	Durable string                      `yaml:"durable"`
	Persist worker.Config               `yaml:"persist"`
}

type PyroscopeConfig struct {
	Enabled       bool              `yaml:"enabled"`
	ServerAddress string            `yaml:"server_address"`
	Tags          map[string]string `yaml:"tags"`
}

func (cfg *AppConfig) setDefaults() {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "order-manager"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.GRPC.ListenAddr == "" {
		cfg.GRPC.ListenAddr = ":50051"
	}
	if cfg.Admin.ListenAddr == "" {
		cfg.Admin.ListenAddr = ":8080"
	}
	if cfg.MarketData.Source == "" {
		cfg.MarketData.Source = "static"
	}
	if cfg.MarketData.RedisPrefix == "" {
		cfg.MarketData.RedisPrefix = "price:"
	}
	if cfg.IDs.Format == "" {
		cfg.IDs.Format = IDFormatSequence
	}
	if cfg.IDs.Prefix == "" {
		cfg.IDs.Prefix = "ORD-"
	}
	if cfg.IDs.RedisKey == "" {
		cfg.IDs.RedisKey = "oms:order_id"
	}
	if cfg.Journal.RecentSize <= 0 {
		cfg.Journal.RecentSize = 1024
	}
	if cfg.Journal.Nats.URL == "" {
		cfg.Journal.Nats.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Journal.Nats.Stream == "" {
		cfg.Journal.Nats.Stream = "ORDERS"
	}
	if cfg.Journal.Nats.Subject == "" {
		cfg.Journal.Nats.Subject = "ORDERS.events"
	}
	if cfg.Worker.Source == "" {
		cfg.Worker.Source = WorkerSourceKafka
	}
	if cfg.Worker.Durable == "" {
		cfg.Worker.Durable = "order_worker"
	}
	if cfg.Worker.Kafka.Topic == "" {
		cfg.Worker.Kafka.Topic = cfg.Journal.Kafka.Topic
	}
	if len(cfg.Worker.Kafka.Brokers) == 0 {
		cfg.Worker.Kafka.Brokers = cfg.Journal.Kafka.Producer.Brokers
	}
	if cfg.Pyroscope.ServerAddress == "" {
		cfg.Pyroscope.ServerAddress = "http://localhost:4040"
	}
}

// AutoAcceptEnabled defaults to true when auto_accept is absent.
func (cfg *AppConfig) AutoAcceptEnabled() bool {
	return cfg.AutoAccept == nil || *cfg.AutoAccept
}

// UsesRedis reports whether any configured component reads from redis.
func (cfg *AppConfig) UsesRedis() bool {
	return cfg.IDs.Format == IDFormatRedis || cfg.MarketData.Source == "redis"
}

func (cfg *AppConfig) validate() error {
	switch cfg.IDs.Format {
	case IDFormatSequence, IDFormatUUID:
	case IDFormatRedis:
		if cfg.Redis == nil {
			return errors.New("ids.format redis requires a redis section")
		}
	default:
		return fmt.Errorf("unknown ids.format %q", cfg.IDs.Format)
	}

	switch cfg.MarketData.Source {
	case "static":
	case "redis":
		if cfg.Redis == nil {
			return errors.New("market_data.source redis requires a redis section")
		}
	default:
		return fmt.Errorf("unknown market_data.source %q", cfg.MarketData.Source)
	}

	if cfg.ReadModel.Enabled && cfg.OmsDB == nil {
		return errors.New("read_model requires an oms_db section")
	}

	switch cfg.Worker.Source {
	case WorkerSourceKafka, WorkerSourceNats:
	default:
		return fmt.Errorf("unknown worker.source %q", cfg.Worker.Source)
	}

	if cfg.Journal.Pebble.Enabled && cfg.Journal.Pebble.Path == "" {
		return errors.New("journal.pebble.path is required")
	}
	if cfg.Journal.Kafka.Enabled && (cfg.Journal.Kafka.Topic == "" || len(cfg.Journal.Kafka.Producer.Brokers) == 0) {
		return errors.New("journal.kafka needs topic and brokers")
	}
	if cfg.Archive.Enabled && cfg.Archive.Dir == "" {
		return errors.New("archive.dir is required")
	}
	if cfg.FixGateway.Enabled && cfg.FixGateway.ConfigFilepath == "" {
		return errors.New("fix_gateway.config_filepath is required")
	}
	return nil
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}

	cfg, err := Parse(configBytes)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

// Parse expands ${VAR} references, decodes the YAML and applies defaults.
func Parse(configBytes []byte) (*AppConfig, error) {
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(configBytes, cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
