package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeblew999/plat-overlay/internal/db"
	"github.com/joeblew999/plat-overlay/internal/sqlapi"
)

// ExtractService manages local table extracts used by the DuckDB fetcher.
type ExtractService struct {
	dir string
}

// NewExtractService creates an extract service rooted at dataDir/extracts.
// An empty dataDir has no extracts.
func NewExtractService(dataDir string) *ExtractService {
	if dataDir == "" {
		return &ExtractService{}
	}
	return &ExtractService{dir: filepath.Join(dataDir, "extracts")}
}

var extToType = map[string]string{
	".csv":        "CSV",
	".parquet":    "Parquet",
	".geoparquet": "Parquet",
}

// List returns all extracts, sorted by name.
func (s *ExtractService) List() ([]ExtractFile, error) {
	if s.dir == "" {
		return []ExtractFile{}, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ExtractFile{}, nil
		}
		return nil, err
	}

	files := []ExtractFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType, ok := extToType[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ExtractFile{
			Name:     entry.Name(),
			Table:    TableName(entry.Name()),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ImportAll loads every extract into conn and returns the created tables.
func (s *ExtractService) ImportAll(ctx context.Context, conn *sql.DB) ([]string, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(files))
	for _, f := range files {
		if err := db.Import(ctx, conn, f.Table, filepath.Join(s.dir, f.Name)); err != nil {
			return tables, err
		}
		tables = append(tables, f.Table)
	}
	return tables, nil
}

// Dir returns the extracts directory.
func (s *ExtractService) Dir() string {
	return s.dir
}

// TableName derives the local table name from an extract file name, so
// "carto-dw-ac-7xhfwyml.shared.ford-blue-zones.csv" serves queries against
// the warehouse table of the same dotted name.
func TableName(file string) string {
	return sqlapi.LocalTable(strings.TrimSuffix(file, filepath.Ext(file)))
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
