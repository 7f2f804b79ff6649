package main

import (
	"context"

	config "github.com/NordCoder/firmbook/internal/config/api"
	rds "github.com/NordCoder/firmbook/internal/repository/redis"
	"go.uber.org/zap"
)

func initRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*rds.Client, error) {
	client, err := rds.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	logger.Info("redis connected", zap.Int("pool_size", cfg.Redis.PoolSize))
	return client, nil
}
