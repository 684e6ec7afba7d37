package sqlapi

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/joeblew999/plat-overlay/internal/metrics"
)

// DuckDB lists distinct values from a local DuckDB database, for running the
// demos against an extract instead of the hosted warehouse.
type DuckDB struct {
	db *sql.DB
}

// NewDuckDB wraps an open DuckDB handle.
func NewDuckDB(db *sql.DB) *DuckDB {
	return &DuckDB{db: db}
}

// Distinct implements Fetcher.
func (d *DuckDB) Distinct(ctx context.Context, column, table string) ([]string, error) {
	start := time.Now()
	out, err := d.distinct(ctx, column, table)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveCategoryFetch("duckdb", outcome, time.Since(start).Seconds())
	return out, err
}

func (d *DuckDB) distinct(ctx context.Context, column, table string) ([]string, error) {
	if d.db == nil {
		return nil, fmt.Errorf("%w: database not available", ErrFetch)
	}

	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s", quoteIdent(column), quoteIdent(LocalTable(table)))
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrFetch, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	out := collect(values)
	if len(out) == 0 {
		return nil, fmt.Errorf("distinct %s: %w", column, ErrNoRows)
	}
	return out, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// LocalTable maps a warehouse table name such as
// "carto-dw-ac-3nduqebh.shared.projections" to the flat name its local
// extract is imported under ("carto_dw_ac_3nduqebh_shared_projections").
func LocalTable(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
