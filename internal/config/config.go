// Package config assembles runtime settings and the categorical value
// fetcher they select.
package config

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joeblew999/plat-overlay/internal/logger"
	"github.com/joeblew999/plat-overlay/internal/sqlapi"
)

// Fetcher backends.
const (
	FetcherSQLAPI = "sqlapi"
	FetcherDuckDB = "duckdb"
	FetcherNone   = "none"
)

// API configures the hosted SQL API.
type API struct {
	BaseURL     string
	Token       string
	Connection  string
	CacheMaxAge time.Duration
	Timeout     time.Duration
}

// Cache configures the categorical value caches. Size 0 disables the
// in-process LRU; an empty RedisAddr disables the shared Redis layer.
type Cache struct {
	Size      int
	TTL       time.Duration
	RedisAddr string
}

// Invalidation configures the table change consumer. No brokers disables it.
type Invalidation struct {
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Host      string
	Port      int
	DataDir   string
	DemosFile string
	Fetcher   string
	API       API
	Cache     Cache
	Changes   Invalidation
	Log       logger.Config
}

// Default returns the settings used when no flags or env vars are given.
func Default() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8086,
		DataDir: ".data",
		Fetcher: FetcherDuckDB,
		API: API{
			BaseURL:     "https://gcp-us-east1.api.carto.com",
			Connection:  "carto_dw",
			CacheMaxAge: 300 * time.Second,
			Timeout:     10 * time.Second,
		},
		Cache:   Cache{Size: 256, TTL: 5 * time.Minute},
		Changes: Invalidation{Topic: "table-changes", GroupID: "overlay-invalidator"},
		Log:     logger.Config{Level: "info"},
	}
}

// Validate checks the settings are coherent.
func (c Config) Validate() error {
	switch c.Fetcher {
	case FetcherSQLAPI:
		if c.API.BaseURL == "" {
			return fmt.Errorf("sqlapi fetcher requires an api base url")
		}
		if c.API.Token == "" {
			return fmt.Errorf("sqlapi fetcher requires an api token")
		}
	case FetcherDuckDB, FetcherNone:
	default:
		return fmt.Errorf("unknown fetcher %q (want %s, %s or %s)", c.Fetcher, FetcherSQLAPI, FetcherDuckDB, FetcherNone)
	}
	if c.API.Connection == "" {
		return fmt.Errorf("api connection name is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache size must not be negative")
	}
	if c.Changes.Brokers != "" && c.Cache.Size == 0 && c.Cache.RedisAddr == "" {
		return fmt.Errorf("change events need a cache to invalidate")
	}
	return nil
}

// Addr returns host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewFetcher builds the configured fetcher. Lookups go through the
// in-process LRU, then Redis when rdb is non-nil, then the backend. db is
// only used by the duckdb backend and may be nil, in which case every fetch
// fails and selectors stay empty. The none backend returns a nil Fetcher.
func (c Config) NewFetcher(db *sql.DB, rdb *redis.Client) (sqlapi.Fetcher, error) {
	var f sqlapi.Fetcher
	switch strings.ToLower(c.Fetcher) {
	case FetcherSQLAPI:
		f = sqlapi.NewClient(c.API.BaseURL, c.API.Token, c.API.Connection,
			sqlapi.WithHTTPClient(&http.Client{Timeout: c.API.Timeout}),
			sqlapi.WithCacheMaxAge(c.API.CacheMaxAge),
		)
	case FetcherDuckDB:
		f = sqlapi.NewDuckDB(db)
	case FetcherNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q", c.Fetcher)
	}
	if rdb != nil {
		f = sqlapi.NewRedisCached(rdb, f, c.Cache.TTL)
	}
	if c.Cache.Size > 0 {
		f = sqlapi.NewCached(f, c.Cache.Size, c.Cache.TTL)
	}
	return f, nil
}
