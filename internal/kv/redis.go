// Package kv connects to Redis, which holds the small per-user state that
// lives outside the document store: revoked session tokens and display
// preferences.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// New connects from a redis:// URL (REDIS_URL) and pings once.
func New(ctx context.Context, redisURL string, logger *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("redis connection established",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
	)
	return &Client{rdb: rdb, logger: logger}, nil
}

// Redis exposes the underlying client for the packages that store in it.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() {
	c.logger.Info("closing redis connection")
	if err := c.rdb.Close(); err != nil {
		c.logger.Warn("redis close", zap.Error(err))
	}
}
