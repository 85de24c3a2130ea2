package trade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/core"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures a trade store backend.
type Config struct {
	Backend    string      `mapstructure:"backend"`
	MaxPerUser int         `mapstructure:"max_per_user"`
	DSN        string      `mapstructure:"dsn"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// Open builds the configured store.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("opening trade store", zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg.MaxPerUser), nil
	case BackendRedis:
		s, err := NewRedisStore(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite, BackendPostgres:
		driver := DriverSQLite
		if cfg.Backend == BackendPostgres {
			driver = DriverPostgres
		}
		s, err := OpenSQL(ctx, driver, cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown trade store backend %q", cfg.Backend))
	}
}
