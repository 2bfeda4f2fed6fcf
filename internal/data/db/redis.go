package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
	"github.com/mockly-app/mockly-backend/internal/utils"
)

// NewRedisClient connects to Redis when REDIS_ADDR is set. Returns
// (nil, nil) when unset: the stats cache degrades to plain DB reads.
func NewRedisClient(logg *logger.Logger) (*goredis.Client, error) {
	log := logg.With("service", "RedisClient")

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", logg))
	if addr == "" {
		log.Info("REDIS_ADDR not set, stats cache disabled")
		return nil, nil
	}
	password := utils.GetEnv("REDIS_PASSWORD", "", logg)
	dbIndex := utils.GetEnvAsInt("REDIS_DB", 0, logg)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          dbIndex,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("Connected to Redis", "addr", addr)
	return rdb, nil
}
