package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"live-nav/internal/general/config"
	"live-nav/internal/general/logger"
)

// NewRedisClient connects to Redis and verifies connectivity with a bounded ping.
func NewRedisClient(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port)),
		Password: cfg.Redis.Password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{
		"host": cfg.Redis.Host,
		"port": cfg.Redis.Port,
	})

	return rdb, nil
}
