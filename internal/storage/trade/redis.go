// internal/storage/trade/redis.go
package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/core"
)

// RedisClient is the subset of go-redis used by RedisStore.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisStore keeps one hash per user: users:{uid}:trades, field = trade id,
// value = JSON trade.
type RedisStore struct {
	client RedisClient
	prefix string
	logger *zap.Logger
}

// NewRedisStore dials redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("redis ping %s: %w", cfg.Addr, err))
	}
	return NewRedisStoreWithClient(client, cfg.Prefix, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client RedisClient, prefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + "users:" + userID + ":trades"
}

// Put writes t into the user's hash.
func (s *RedisStore) Put(ctx context.Context, userID string, t core.Trade) error {
	if t.ID == "" {
		return core.WrapError(core.ErrInvalidTrade, fmt.Errorf("trade id is empty"))
	}
	data, err := encode(t)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if err := s.client.HSet(ctx, s.key(userID), t.ID, data).Err(); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

// Get reads one trade.
func (s *RedisStore) Get(ctx context.Context, userID, id string) (core.Trade, error) {
	data, err := s.client.HGet(ctx, s.key(userID), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Trade{}, notFound(id)
	}
	if err != nil {
		return core.Trade{}, core.WrapError(core.ErrStoreFailed, err)
	}
	t, err := decode(data)
	if err != nil {
		return core.Trade{}, core.WrapError(core.ErrStoreFailed, fmt.Errorf("decoding trade %s: %w", id, err))
	}
	return t, nil
}

// Delete removes one trade.
func (s *RedisStore) Delete(ctx context.Context, userID, id string) error {
	n, err := s.client.HDel(ctx, s.key(userID), id).Result()
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Snapshot reads the whole hash. Entries that fail to decode are skipped
// and logged.
func (s *RedisStore) Snapshot(ctx context.Context, userID string) (map[string]core.Trade, error) {
	raw, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	out := make(map[string]core.Trade, len(raw))
	for id, data := range raw {
		t, err := decode([]byte(data))
		if err != nil {
			s.logger.Warn("skipping undecodable trade", zap.String("user", userID), zap.String("id", id), zap.Error(err))
			continue
		}
		out[id] = t
	}
	return out, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
