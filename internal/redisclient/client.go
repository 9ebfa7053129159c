// Package redisclient owns the connection used by the shared session cache.
package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

// New tunes the client for a best-effort cache: callers fall back to the
// session store on any error, so timeouts are short and retries minimal.
func New(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		ClientName:            "quorahub-session-cache",
		DialTimeout:           time.Second,
		ReadTimeout:           300 * time.Millisecond,
		WriteTimeout:          300 * time.Millisecond,
		ContextTimeoutEnabled: true,
		MaxRetries:            1,
		PoolSize:              20,
		MinIdleConns:          2,
	})

	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the client for the session cache.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}
