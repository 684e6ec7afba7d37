// Package sqlapi fetches the distinct categorical values that populate map
// selectors (years, scenarios, dataset versions).
package sqlapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Failure kinds. Every fetch error wraps exactly one of these.
var (
	ErrFetch   = errors.New("sqlapi: fetch failed")
	ErrNotJSON = errors.New("sqlapi: response is not json")
	ErrNoRows  = errors.New("sqlapi: no rows")
)

// Fetcher lists the distinct values of column in table, sorted.
type Fetcher interface {
	Distinct(ctx context.Context, column, table string) ([]string, error)
}

// Invalidator drops cached values of a table after it changed upstream.
// Implementations forward to the fetcher they wrap when it is one too.
type Invalidator interface {
	InvalidateTable(ctx context.Context, table string) (int, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, column, table string) ([]string, error)

func (f FetcherFunc) Distinct(ctx context.Context, column, table string) ([]string, error) {
	return f(ctx, column, table)
}

// formatValue renders a scalar cell as an option value. Nulls are skipped.
func formatValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// collect de-duplicates and sorts option values.
func collect(values []any) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := formatValue(v)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
