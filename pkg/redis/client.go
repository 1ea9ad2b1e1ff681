package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/acr/pkg/config"
)

const defaultTimeout = 3 * time.Second

// Client wraps the Redis client used for composite snapshots and study digests.
// A disabled client turns every cache operation into a miss.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	enabled bool
	addr    string
	ttl     time.Duration
}

// New creates a new Redis client. REDIS_TIMEOUT bounds dialing, every command
// and the startup ping; REDIS_TTL is the lifetime of as-of snapshots and digests.
func New(cfg *config.Config) (*Client, error) {
	ttl := cfg.Redis.TTL
	if ttl <= 0 {
		ttl = TTLDaily
	}
	if !cfg.Redis.Enabled {
		return &Client{enabled: false, ttl: ttl}, nil
	}

	timeout := cfg.Redis.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	addr := fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection to %s failed: %w", addr, err)
	}

	return &Client{
		rdb:     rdb,
		enabled: true,
		addr:    addr,
		ttl:     ttl,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Addr returns host:port, empty when disabled
func (c *Client) Addr() string {
	return c.addr
}

// Redis returns the underlying redis client for advanced usage
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
