package sqlapi

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/joeblew999/plat-overlay/internal/metrics"
)

// Cached memoizes successful Distinct calls for ttl. Failures are never
// cached so the next refresh retries upstream.
type Cached struct {
	next  Fetcher
	cache *expirable.LRU[string, []string]
}

// NewCached wraps next with an LRU of at most size entries.
func NewCached(next Fetcher, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 128
	}
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, []string](size, nil, ttl),
	}
}

// Distinct implements Fetcher.
func (c *Cached) Distinct(ctx context.Context, column, table string) ([]string, error) {
	key := cacheKey(table, column)
	if v, ok := c.cache.Get(key); ok {
		metrics.ObserveCategoryFetch("cache", "hit", 0)
		return append([]string(nil), v...), nil
	}
	out, err := c.next.Distinct(ctx, column, table)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]string(nil), out...))
	return out, nil
}

// Purge drops every cached entry.
func (c *Cached) Purge() {
	c.cache.Purge()
}

// InvalidateTable drops the entries for table here and in next.
func (c *Cached) InvalidateTable(ctx context.Context, table string) (int, error) {
	n := 0
	prefix := table + "\x00"
	for _, k := range c.cache.Keys() {
		if strings.HasPrefix(k, prefix) && c.cache.Remove(k) {
			n++
		}
	}
	if inv, ok := c.next.(Invalidator); ok {
		m, err := inv.InvalidateTable(ctx, table)
		return n + m, err
	}
	return n, nil
}

func cacheKey(table, column string) string {
	return table + "\x00" + column
}
