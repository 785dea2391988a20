package postgres_wrapper

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/lib/pq" // nolint
	"go.uber.org/zap"
	pg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

type PostgresConfig struct {
	DataSource                 string          `yaml:"data_source"`
	MaxOpenConns               int             `yaml:"max_open_conns"`
	MaxIdleConns               int             `yaml:"max_idle_conns"`
	ConnMaxLifeTimeMiliseconds int64           `yaml:"conn_max_life_time_ms"`
	MigrationConnURL           string          `yaml:"migration_conn_url"`
	SlaveSources               []string        `yaml:"slave_sources"`
	LogLevel                   logger.LogLevel `yaml:"log_level"`
	Location                   string          `yaml:"location"`
	// ConnectTimeout bounds InitPostgresWithBackoff; 0 means one minute.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// zapWriter routes gorm's logger through the zap sugar.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	zap.S().Infof(format, args...)
}

func (cfg *PostgresConfig) location() *time.Location {
	if cfg.Location == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		zap.S().Warnf("unknown location %q, using UTC", cfg.Location)
		return time.UTC
	}
	return loc
}

// InitPostgres set up postgres
func InitPostgres(cfg *PostgresConfig) (*gorm.DB, error) {
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}
	newLogger := logger.New(zapWriter{}, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  cfg.LogLevel,
		IgnoreRecordNotFoundError: true,
	})

	loc := cfg.location()
	db, err := gorm.Open(pg.Open(cfg.DataSource), &gorm.Config{
		Logger: newLogger,
		NowFunc: func() time.Time {
			return time.Now().In(loc)
		},
	})
	if err != nil {
		zap.S().Debugf("open postgres fail: %+v", err)
		return nil, err
	}

	var repl []gorm.Dialector
	for _, s := range cfg.SlaveSources {
		repl = append(repl, pg.Open(s))
	}

	if len(repl) > 0 {
		zap.S().Debugf("register replicas postgres")
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: repl,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			zap.S().Debugf("init postgres replicas fail: %+v", err)
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		zap.S().Debugf("get DB instance failed %v", err)
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeTimeMiliseconds) * time.Millisecond)

	return db, nil
}

// InitPostgresWithBackoff retries InitPostgres until it succeeds, ctx is done
// or ConnectTimeout elapses.
func InitPostgresWithBackoff(ctx context.Context, cfg *PostgresConfig) (*gorm.DB, error) {
	var db *gorm.DB
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = cfg.ConnectTimeout
	if boff.MaxElapsedTime <= 0 {
		boff.MaxElapsedTime = time.Minute
	}

	err := backoff.Retry(func() error {
		var err error
		db, err = InitPostgres(cfg)
		if err != nil {
			zap.S().Warnf("connect postgres error: %v", err)
		}
		return err
	}, backoff.WithContext(boff, ctx))
	if err != nil {
		return nil, err
	}
	return db, nil
}
