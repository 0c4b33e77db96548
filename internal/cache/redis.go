package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"corebank-go/internal/config"
	"corebank-go/internal/logger"
)

// Connect opens a redis client and verifies the connection with a ping.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Redis ping failed", err)
		return nil, err
	}

	logger.Info("Connected to Redis")
	return client, nil
}
