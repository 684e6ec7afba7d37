package sqlapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/joeblew999/plat-overlay/internal/metrics"
)

const redisPrefix = "overlay:distinct:"

// OpenRedis connects to addr and pings it.
func OpenRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     16,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisCached shares distinct values between replicas through Redis.
// Redis errors degrade to calling next directly.
type RedisCached struct {
	rdb  *redis.Client
	next Fetcher
	ttl  time.Duration
}

// NewRedisCached wraps next with a Redis-backed cache.
func NewRedisCached(rdb *redis.Client, next Fetcher, ttl time.Duration) *RedisCached {
	return &RedisCached{rdb: rdb, next: next, ttl: ttl}
}

func redisKey(table, column string) string {
	return redisPrefix + table + ":" + column
}

// Distinct implements Fetcher.
func (r *RedisCached) Distinct(ctx context.Context, column, table string) ([]string, error) {
	key := redisKey(table, column)
	start := time.Now()
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var out []string
		if jerr := json.Unmarshal(raw, &out); jerr == nil {
			metrics.ObserveCategoryFetch("redis", "hit", time.Since(start).Seconds())
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		metrics.ObserveCategoryFetch("redis", "error", time.Since(start).Seconds())
	}

	out, err := r.next.Distinct(ctx, column, table)
	if err != nil {
		return nil, err
	}
	if data, jerr := json.Marshal(out); jerr == nil {
		_ = r.rdb.Set(ctx, key, data, r.ttl).Err()
	}
	return out, nil
}

// InvalidateTable deletes every cached column of table and forwards to next.
func (r *RedisCached) InvalidateTable(ctx context.Context, table string) (int, error) {
	pattern := redisPrefix + escapeGlob(table) + ":*"
	var keys []string
	iter := r.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis SCAN %q: %w", pattern, err)
	}

	n := 0
	if len(keys) > 0 {
		deleted, err := r.rdb.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
		}
		n = int(deleted)
	}
	if inv, ok := r.next.(Invalidator); ok {
		m, err := inv.InvalidateTable(ctx, table)
		return n + m, err
	}
	return n, nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
