// Package cache wraps go-redis for the one thing the server needs a shared
// cache for: idempotency markers for at-least-once Lightning node events.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/numeraire/swissknife-go/internal/config"
)

// Cache is the subset of redis.Client operations the server depends on,
// grounded on crypto-wallet/pkg/redis.Client but trimmed to what's used here.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// SetNX sets key only if it does not already exist, returning true when
	// the set took effect. Used to dedupe at-least-once provider events.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

type client struct {
	rdb *redis.Client
}

// New opens a connection pool against a single Redis instance.
func New(cfg config.RedisConfig) Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return &client{rdb: rdb}
}

func (c *client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return val, err
}

func (c *client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (c *client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *client) Close() error {
	return c.rdb.Close()
}

// ErrNotFound is returned by Get when the key is absent, mirroring redis.Nil
// without leaking the go-redis package to callers.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }
