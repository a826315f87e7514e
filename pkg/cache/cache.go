// Package cache keeps finished frame exports in Redis so that repeated
// requests for the same file do not spend Figma render quota.
//
// The cache is a disposable performance layer. Every Redis failure is
// logged and treated as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hellenic-development/design-audit/pkg/exporter"
	"github.com/hellenic-development/design-audit/pkg/figma"
)

const (
	keyPrefix = "design-audit:frames:" // design-audit:frames:{fileKey}:{nodeId}

	// DefaultTTL stays well below the lifetime of Figma's temporary image URLs.
	DefaultTTL = 10 * time.Minute
)

// Logger receives cache failures. A nil Logger means silent operation.
type Logger interface {
	Warnf(format string, args ...any)
}

// ExportCache stores exporter results as JSON strings.
type ExportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger Logger
}

// Option configures an ExportCache.
type Option func(*ExportCache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *ExportCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the failure logger.
func WithLogger(l Logger) Option {
	return func(c *ExportCache) { c.logger = l }
}

// New wraps an existing Redis client.
func New(client *redis.Client, opts ...Option) *ExportCache {
	c := &ExportCache{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, opts ...Option) (*ExportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return New(client, opts...), nil
}

// Key returns the Redis key for h.
func Key(h figma.FileHandle) string {
	return keyPrefix + h.FileKey + ":" + h.NodeID
}

// Get implements exporter.Cache.
func (c *ExportCache) Get(ctx context.Context, h figma.FileHandle) (*exporter.Result, bool) {
	data, err := c.client.Get(ctx, Key(h)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.warnf("cache get %s: %v", Key(h), err)
		return nil, false
	}

	var res exporter.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.warnf("cache decode %s: %v", Key(h), err)
		return nil, false
	}
	return &res, true
}

// Set implements exporter.Cache.
func (c *ExportCache) Set(ctx context.Context, h figma.FileHandle, r *exporter.Result) {
	if r == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		c.warnf("cache encode %s: %v", Key(h), err)
		return
	}
	if err := c.client.Set(ctx, Key(h), data, c.ttl).Err(); err != nil {
		c.warnf("cache set %s: %v", Key(h), err)
	}
}

// Ping checks that Redis is reachable.
func (c *ExportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *ExportCache) Close() error {
	return c.client.Close()
}

func (c *ExportCache) warnf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Warnf(format, args...)
	}
}
