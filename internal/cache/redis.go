package cache

import (
	"context"
	"fmt"
	"time"

	"arcade_webapp/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Connect opens a Redis client. Without an address it returns nil and the
// callers fall back to in-process state.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		logger.Warn("REDIS_ADDR not set, rate limits and levels stay in process")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	logger.Info("connected to redis", "addr", addr, "db", db)
	return rdb, nil
}
