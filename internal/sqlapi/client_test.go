package sqlapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret-token", "carto_dw")
}

func TestDistinct_SendsAuthAndCacheHeaders(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotCache string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotAuth = r.Header.Get("Authorization")
		gotCache = r.Header.Get("Cache-Control")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"rows":[{"version":"2024-06"},{"version":"2023-11"},{"version":null},{"version":"2024-06"}]}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := c.Distinct(ctx, "version", "carto-dw-ac-7xhfwyml.shared.ford-blue-zones")
	if err != nil {
		t.Fatalf("Distinct: %v", err)
	}
	if want := []string{"2023-11", "2024-06"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("values=%v want %v", got, want)
	}
	if gotPath != "/v3/sql/carto_dw/query" {
		t.Fatalf("path=%q", gotPath)
	}
	if gotQuery != "SELECT DISTINCT `version` FROM `carto-dw-ac-7xhfwyml.shared.ford-blue-zones`" {
		t.Fatalf("q=%q", gotQuery)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("auth=%q", gotAuth)
	}
	if gotCache != "max-age=300" {
		t.Fatalf("cache-control=%q", gotCache)
	}
}

func TestDistinct_NumericValues(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[{"year":2050},{"year":2020},{"year":2030}]}`))
	})
	got, err := c.Distinct(context.Background(), "year", "projections")
	if err != nil {
		t.Fatalf("Distinct: %v", err)
	}
	if want := []string{"2020", "2030", "2050"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("values=%v want %v", got, want)
	}
}

func TestDistinct_ErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		h    http.HandlerFunc
		want error
	}{
		{
			name: "html error page",
			h: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html>login</html>"))
			},
			want: ErrNotJSON,
		},
		{
			name: "server error",
			h: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			},
			want: ErrFetch,
		},
		{
			name: "missing rows",
			h: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"schema":[]}`))
			},
			want: ErrNoRows,
		},
		{
			name: "empty rows",
			h: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"rows":[]}`))
			},
			want: ErrNoRows,
		},
		{
			name: "only nulls",
			h: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"rows":[{"version":null}]}`))
			},
			want: ErrNoRows,
		},
		{
			name: "malformed json",
			h: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"rows":[`))
			},
			want: ErrNotJSON,
		},
	}

	for _, tc := range cases {
		c := newServer(t, tc.h)
		_, err := c.Distinct(context.Background(), "version", "zones")
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want %v", tc.name, err, tc.want)
		}
	}
}

func TestDistinct_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "t", "carto_dw", WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))
	_, err := c.Distinct(context.Background(), "version", "zones")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("err=%v want ErrFetch", err)
	}
}

func TestBacktick_StripsQuotes(t *testing.T) {
	if got := backtick("a`b"); got != "`ab`" {
		t.Fatalf("backtick=%q", got)
	}
	if !strings.HasPrefix(quoteTable(`main.zo"nes`), `"main"."zo""nes"`) {
		t.Fatalf("quoteTable=%q", quoteTable(`main.zo"nes`))
	}
}
