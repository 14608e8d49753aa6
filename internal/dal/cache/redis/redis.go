package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/spf13/viper"
)

// Client is a Redis cache client.
type Client struct {
	pool   *redis.Pool
	prefix string
}

// MustNewClient creates a Redis client from configuration and checks connectivity.
func MustNewClient() *Client {
	addr := viper.GetString("cache.redis.addr")
	if addr == "" {
		addr = "redis:6379"
	}
	maxIdle := viper.GetInt("cache.redis.max_idle")
	if maxIdle == 0 {
		maxIdle = 10
	}

	pool := &redis.Pool{
		MaxIdle:     maxIdle,
		MaxActive:   viper.GetInt("cache.redis.max_active"),
		IdleTimeout: 5 * time.Minute,
		Wait:        true,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialPassword(os.Getenv("REDIS_PASSWORD")),
				redis.DialDatabase(viper.GetInt("cache.redis.db")),
				redis.DialConnectTimeout(5*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")

			return err
		},
	}

	client := NewClient(pool, viper.GetString("cache.redis.key_prefix"))
	if err := client.Ping(context.Background()); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	slog.Info("Redis connected", "addr", addr)

	return client
}

// NewClient wraps an existing pool. Every key is prefixed with prefix.
func NewClient(pool *redis.Pool, prefix string) *Client {
	return &Client{pool: pool, prefix: prefix}
}

// Close releases the pool.
func (c *Client) Close() error {
	return c.pool.Close()
}

// Ping checks that Redis answers.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Get implements cacheport.Cache.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", c.prefix+key))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, true, nil
}

// Set implements cacheport.Cache.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	args := redis.Args{}.Add(c.prefix + key).Add(value)
	if ttl > 0 {
		args = args.Add("PX", ttl.Milliseconds())
	}

	if _, err := conn.Do("SET", args...); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// Forget implements cacheport.Cache with a single DEL.
func (c *Client) Forget(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	args := make(redis.Args, 0, len(keys))
	for _, key := range keys {
		args = args.Add(c.prefix + key)
	}

	if _, err := conn.Do("DEL", args...); err != nil {
		return fmt.Errorf("failed to delete %d keys: %w", len(keys), err)
	}

	return nil
}
