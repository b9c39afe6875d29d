package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/symptom"
	pkgredis "github.com/Adithya-Monish-Kumar-K/medmind/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "match:"

// Store is the key-value backend; *pkgredis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ReportCache memoises match reports by catalog version, normalised query
// and topN. Reports computed against another catalog, for example one loaded
// before a restart or an import, are never served.
type ReportCache struct {
	store   Store
	ttl     time.Duration
	version string
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache scoped to catalogVersion.
func New(store Store, ttl time.Duration, catalogVersion string) *ReportCache {
	return &ReportCache{
		store:   store,
		ttl:     ttl,
		version: catalogVersion,
		logger:  slog.Default().With("component", "match-cache", "catalog_version", catalogVersion),
	}
}

func (c *ReportCache) Get(ctx context.Context, query symptom.Set, topN int) (*matcher.Report, bool) {
	key := c.key(query, topN)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var report matcher.Report
	if err := json.Unmarshal(data, &report); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &report, true
}

func (c *ReportCache) Set(ctx context.Context, query symptom.Set, topN int, report *matcher.Report) {
	key := c.key(query, topN)
	data, err := json.Marshal(report)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached report or runs computeFn once per key,
// even under concurrent callers. The bool reports a cache hit.
func (c *ReportCache) GetOrCompute(
	ctx context.Context,
	query symptom.Set,
	topN int,
	computeFn func() (*matcher.Report, error),
) (*matcher.Report, bool, error) {
	if report, ok := c.Get(ctx, query, topN); ok {
		return report, true, nil
	}
	key := c.key(query, topN)
	val, err, _ := c.group.Do(key, func() (any, error) {
		report, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, topN, report)
		return report, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*matcher.Report), false, nil
}

func (c *ReportCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *ReportCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// key hashes the catalog version with the sorted tokens, so "Cough, fever"
// and "fever,cough" share an entry only within one catalog.
func (c *ReportCache) key(query symptom.Set, topN int) string {
	raw := fmt.Sprintf("%s|%s|top=%d", c.version, strings.Join(query.Sorted(), ","), topN)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
