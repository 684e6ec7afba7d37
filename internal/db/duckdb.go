// Package db opens the local DuckDB database that backs offline demos.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration. An empty DataDir opens an in-memory
// database.
type Config struct {
	DataDir string
	DBName  string
}

// Open opens a DuckDB database and loads the spatial and parquet extensions
// when they are available.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "overlay"
		}
		dsn = filepath.Join(duckdbDir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	for _, ext := range []string{"spatial", "parquet"} {
		// Offline hosts cannot install extensions; plain tables still work.
		_, _ = conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext))
	}
	return conn, nil
}

// Import creates (or replaces) table from a CSV or Parquet extract on disk.
func Import(ctx context.Context, conn *sql.DB, table, path string) error {
	var reader string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = "read_csv_auto"
	case ".parquet", ".geoparquet":
		reader = "read_parquet"
	default:
		return fmt.Errorf("unsupported extract type: %s", filepath.Ext(path))
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}

	stmt := fmt.Sprintf(`CREATE OR REPLACE TABLE "%s" AS SELECT * FROM %s('%s')`,
		strings.ReplaceAll(table, `"`, `""`), reader, strings.ReplaceAll(path, "'", "''"))
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("import %s into %s: %w", path, table, err)
	}
	return nil
}
