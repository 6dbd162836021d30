// Package cache memoizes optimizer results in Redis.
//
// Only deterministic requests are cached: an anneal, temper or hyper request
// without a seed, and a hyper request with a time limit or parallel workers,
// always reaches the wrapped optimizer. Redis is treated as an
// accelerator, never as a dependency: read and write failures are logged and
// the call falls through to the wrapped optimizer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
)

const (
	// DefaultPrefix is prepended to every cache key.
	DefaultPrefix = "tensorpath:path:"

	// DefaultTTL is how long a cached path is kept.
	DefaultTTL = 24 * time.Hour
)

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// WithTTL overrides DefaultTTL. A non-positive TTL stores entries without
// expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Cache is an optimizer.Optimizer that stores results of next in Redis.
type Cache struct {
	next   optimizer.Optimizer
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps next with a Redis cache.
func New(next optimizer.Optimizer, client *redis.Client, opts ...Option) (*Cache, error) {
	if next == nil {
		return nil, errors.New("cache: optimizer is nil")
	}
	if client == nil {
		return nil, errors.New("cache: redis client is nil")
	}

	c := &Cache{
		next:   next,
		client: client,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Dial parses a redis:// URL, pings the server and returns a client.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Optimize returns a cached path for req when one exists and otherwise
// calls next and stores its result.
func (c *Cache) Optimize(ctx context.Context, req *optimizer.Request) (path.Path, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Stochastic() {
		return c.next.Optimize(ctx, req)
	}

	key, err := c.Key(req)
	if err != nil {
		c.logger.Warn("cache key failed", "op", req.Op, "error", err)
		return c.next.Optimize(ctx, req)
	}

	if p, ok := c.lookup(ctx, key, req.Network.Len()); ok {
		c.logger.Debug("cache hit", "op", req.Op, "key", key)
		return p, nil
	}

	p, err := c.next.Optimize(ctx, req)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, p)
	return p, nil
}

// Key returns the Redis key for req.
func (c *Cache) Key(req *optimizer.Request) (string, error) {
	data, err := req.Key()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return c.prefix + hex.EncodeToString(sum[:]), nil
}

func (c *Cache) lookup(ctx context.Context, key string, n int) (path.Path, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var p path.Path
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	if err := path.Validate(p, n, path.Assign); err != nil {
		c.logger.Warn("discarding invalid cache entry", "key", key, "error", err)
		return nil, false
	}
	return p, true
}

func (c *Cache) store(ctx context.Context, key string, p path.Path) {
	if p == nil {
		p = path.Path{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
