package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient opens the optional shared cache connection. With redis
// disabled in config it returns a nil client and the service runs on the
// in-process cache alone.
func NewRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if cfg == nil || !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  time.Duration(cfg.Redis.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.Redis.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Redis.WriteTimeoutSeconds) * time.Second,
		PoolSize:     cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			logger.S().Warnf("close redis: %v", err)
		}
	}
	return rdb, cleanup, nil
}
