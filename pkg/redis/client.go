// Package redis wraps go-redis for the match cache. Every key is stored
// under a namespace prefix so several deployments can share one instance.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/config"
	"github.com/redis/go-redis/v9"
)

const (
	namespace   = "medmind:"
	scanCount   = 200
	dialTimeout = 5 * time.Second
)

// ErrNil is returned by Get for a missing key.
var ErrNil = redis.Nil

type Client struct {
	rdb *redis.Client
}

// NewClient connects and pings; the connection is closed again if the
// ping fails.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dialTimeout,
	})
	c := &Client{rdb: rdb}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, namespace+key).Bytes()
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, namespace+key, value, ttl).Err()
}

// FlushByPattern unlinks every key matching the glob pattern, one SCAN page
// at a time, and returns how many were removed.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		removed int64
		cursor  uint64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, namespace+pattern, scanCount).Result()
		if err != nil {
			return removed, fmt.Errorf("scanning %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			removed += n
			if err != nil {
				return removed, fmt.Errorf("unlinking %d keys: %w", len(keys), err)
			}
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
