package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestImportCSV(t *testing.T) {
	dir := t.TempDir()
	conn, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	csv := filepath.Join(dir, "zones.csv")
	if err := os.WriteFile(csv, []byte("version,name\n2024-06,a\n2023-11,b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := Import(ctx, conn, "zones", csv); err != nil {
		t.Fatalf("Import: %v", err)
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM "zones"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows=%d want 2", n)
	}

	if err := Import(ctx, conn, "zones", filepath.Join(dir, "zones.txt")); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if err := Import(ctx, conn, "zones", filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	conn, err := Open(Config{DataDir: dir, DBName: "demo"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "duckdb", "demo.duckdb")); err != nil {
		t.Fatalf("database file: %v", err)
	}
}
