// Package cache stores JSON encoded resources under string keys with a
// time to live.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTLSeconds is how long gists, versions, crate lists and crate
// metadata stay cached.
const DefaultTTLSeconds = 86400

const (
	KeyVersions = "version"
	KeyCrates   = "crates"
)

var (
	ErrSerialize = errors.New("cache serialization failed")
	ErrBackend   = errors.New("cache backend failed")
)

// Store is the byte level backing store. A missing or expired key reports
// found=false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

type Client struct {
	store  Store
	logger *slog.Logger
	group  singleflight.Group
}

func New(store Store, logger *slog.Logger) *Client {
	return &Client{
		store:  store,
		logger: logger,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.store.Close()
}

func GistKey(id string) string {
	return "gist::" + id
}

func CrateInfoKey(name string) string {
	return "crate_info::" + strings.ToLower(strings.TrimSpace(name))
}

// Get decodes the value stored under key. Absent and expired keys return
// found=false without an error.
func Get[T any](ctx context.Context, c *Client, key string) (T, bool, error) {
	var value T
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return value, false, fmt.Errorf("%w: get %s: %v", ErrBackend, key, err)
	}
	if !found {
		return value, false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("%w: decode %s: %v", ErrSerialize, key, err)
	}
	return value, true, nil
}

func Set(ctx context.Context, c *Client, key string, value any, ttlSeconds int) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrSerialize, key, err)
	}
	if ttlSeconds < 1 {
		ttlSeconds = DefaultTTLSeconds
	}
	if err := c.store.Set(ctx, key, raw, time.Duration(ttlSeconds)*time.Second); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrBackend, key, err)
	}
	return nil
}

// Load returns the cached value for key, calling fetch and populating the
// cache on a miss. Concurrent loads of one key inside this process share a
// single fetch. A failed write after a successful fetch is logged and the
// fetched value is still returned.
func Load[T any](ctx context.Context, c *Client, key string, ttlSeconds int, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	value, found, err := Get[T](ctx, c, key)
	if err != nil {
		return zero, err
	}
	if found {
		return value, nil
	}

	// The shared fetch outlives any single caller; each caller stops
	// waiting when its own context ends.
	results := c.group.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		fresh, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if err := Set(fetchCtx, c, key, fresh, ttlSeconds); err != nil {
			c.logger.Warn("cache populate failed", "key", key, "error", err)
		}
		return fresh, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.logger.Debug("cache load shared", "key", key)
		}
		return res.Val.(T), nil
	}
}
