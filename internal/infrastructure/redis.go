package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/meridianhq/execore/internal/config"
)

const defaultRedisPingTimeout = 5 * time.Second

// NewRedisClient dials the named cache and verifies it with a ping.
func NewRedisClient(ctx context.Context, name string, cfg config.RedisConfig) (*redis.Client, error) {
	if strings.TrimSpace(cfg.CacheDSN) == "" {
		return nil, errors.New("redis cache_dsn is required for " + name)
	}

	options, err := redis.ParseURL(cfg.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, defaultRedisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %q: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"cache": name,
		"addr":  options.Addr,
	}).Info("redis connection established")

	return client, nil
}
