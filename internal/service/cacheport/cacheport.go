package cacheport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Cache is a TTL-bounded byte cache.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Forget removes keys. Missing keys are not an error.
	Forget(ctx context.Context, keys ...string) error
}

// Remember returns the cached value for key or computes, stores and returns it.
// Cache failures degrade to calling load directly.
func Remember(
	ctx context.Context,
	c Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	if c == nil {
		return load(ctx)
	}

	cached, ok, err := c.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
	} else if ok {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}

	return value, nil
}

// RememberJSON is Remember for JSON-encoded values.
func RememberJSON[T any](
	ctx context.Context,
	c Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	raw, err := Remember(ctx, c, key, ttl, func(ctx context.Context) ([]byte, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}

		return json.Marshal(value)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}

	return out, nil
}
