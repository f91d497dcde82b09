package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"event-service/internal/config"
)

// NewRedis initializes the Redis connection used for broadcast fan-out
// and the unconsumed-count cache. Returns nil on failure so the service
// can still serve catch-up queries without live push.
func NewRedis(cfg *config.Config, logger *zap.Logger) *redis.Client {
	var client *redis.Client

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to parse REDIS_URL", zap.Error(err))
			return nil
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, live push disabled", zap.Error(err))
		return nil
	}

	logger.Info("Redis connection established",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)),
		zap.Int("db", cfg.Redis.DB))
	return client
}
