package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-coursestore/internal/clients/redis"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type Clients struct {
	// Redis is nil when REDIS_ADDR is unset; course locks are then
	// process-local.
	Redis *goredis.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		log.Warn("REDIS_ADDR not set; course locks are local to this process")
		return Clients{}, nil
	}
	rdb, err := redis.NewClient(ctx, log, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	return Clients{Redis: rdb}, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
