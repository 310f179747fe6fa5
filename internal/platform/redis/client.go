// Package redis owns the shared Redis connection. The engine uses Redis for
// exactly one thing: the cross-process purge run lock.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"glint/internal/platform/config"
)

// Client wraps go-redis with the health probe the readiness endpoint calls.
type Client struct {
	*redis.Client
}

// New connects using cfg and verifies the connection with a ping. An empty
// URL returns (nil, nil): Redis is optional, and the purge job degrades to
// its process-local lock when it is absent.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
