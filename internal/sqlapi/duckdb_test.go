package sqlapi

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	_ "github.com/marcboeker/go-duckdb"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDuckDB_Distinct(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE projections (year INTEGER, scenario VARCHAR)`,
		`INSERT INTO projections VALUES (2040, 'pessimistic'), (2030, 'business_as_usual'), (2040, 'optimistic'), (NULL, NULL)`,
		`CREATE TABLE empty_zones (version VARCHAR)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	d := NewDuckDB(db)
	got, err := d.Distinct(ctx, "scenario", "projections")
	if err != nil {
		t.Fatalf("Distinct: %v", err)
	}
	if want := []string{"business_as_usual", "optimistic", "pessimistic"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("scenarios=%v want %v", got, want)
	}

	years, err := d.Distinct(ctx, "year", "projections")
	if err != nil {
		t.Fatalf("Distinct years: %v", err)
	}
	if want := []string{"2030", "2040"}; !reflect.DeepEqual(years, want) {
		t.Fatalf("years=%v want %v", years, want)
	}

	if _, err := d.Distinct(ctx, "version", "empty_zones"); !errors.Is(err, ErrNoRows) {
		t.Fatalf("empty table err=%v", err)
	}
	if _, err := d.Distinct(ctx, "version", "missing_table"); !errors.Is(err, ErrFetch) {
		t.Fatalf("missing table err=%v", err)
	}
	if _, err := NewDuckDB(nil).Distinct(ctx, "a", "b"); !errors.Is(err, ErrFetch) {
		t.Fatalf("nil db err=%v", err)
	}
}

func TestDuckDB_DottedTableName(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	if got := LocalTable("carto-dw-ac-7xhfwyml.shared.ford-blue-zones"); got != "carto_dw_ac_7xhfwyml_shared_ford_blue_zones" {
		t.Fatalf("LocalTable=%q", got)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE carto_dw_ac_7xhfwyml_shared_ford_blue_zones (version VARCHAR)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO carto_dw_ac_7xhfwyml_shared_ford_blue_zones VALUES ('v2'), ('v1')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := NewDuckDB(db).Distinct(ctx, "version", "carto-dw-ac-7xhfwyml.shared.ford-blue-zones")
	if err != nil {
		t.Fatalf("Distinct: %v", err)
	}
	if want := []string{"v1", "v2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
