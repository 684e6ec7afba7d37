package sqlapi

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestCached_MemoizesSuccessOnly(t *testing.T) {
	calls := 0
	fail := true
	next := FetcherFunc(func(ctx context.Context, column, table string) ([]string, error) {
		calls++
		if fail {
			return nil, ErrNoRows
		}
		return []string{"a", "b"}, nil
	})
	c := NewCached(next, 8, time.Minute)
	ctx := context.Background()

	if _, err := c.Distinct(ctx, "version", "zones"); !errors.Is(err, ErrNoRows) {
		t.Fatalf("err=%v", err)
	}
	fail = false
	got, err := c.Distinct(ctx, "version", "zones")
	if err != nil || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got=%v err=%v", got, err)
	}
	got[0] = "mutated"
	again, _ := c.Distinct(ctx, "version", "zones")
	if again[0] != "a" {
		t.Fatalf("cache aliased caller slice: %v", again)
	}
	if calls != 2 {
		t.Fatalf("upstream calls=%d want 2", calls)
	}

	if _, err := c.Distinct(ctx, "year", "zones"); err != nil {
		t.Fatalf("other key: %v", err)
	}
	if calls != 3 {
		t.Fatalf("different column must miss, calls=%d", calls)
	}

	c.Purge()
	_, _ = c.Distinct(ctx, "version", "zones")
	if calls != 4 {
		t.Fatalf("purge did not evict, calls=%d", calls)
	}
}

func TestCached_InvalidateTable(t *testing.T) {
	calls := map[string]int{}
	next := FetcherFunc(func(ctx context.Context, column, table string) ([]string, error) {
		calls[table+"."+column]++
		return []string{"x"}, nil
	})
	c := NewCached(next, 8, time.Minute)
	ctx := context.Background()

	_, _ = c.Distinct(ctx, "year", "projections")
	_, _ = c.Distinct(ctx, "scenario", "projections")
	_, _ = c.Distinct(ctx, "version", "zones")

	n, err := c.InvalidateTable(ctx, "projections")
	if err != nil || n != 2 {
		t.Fatalf("invalidated=%d err=%v", n, err)
	}

	_, _ = c.Distinct(ctx, "year", "projections")
	_, _ = c.Distinct(ctx, "version", "zones")
	if calls["projections.year"] != 2 {
		t.Fatalf("projections.year fetched %d times, want 2", calls["projections.year"])
	}
	if calls["zones.version"] != 1 {
		t.Fatalf("zones.version fetched %d times, want 1", calls["zones.version"])
	}
}
