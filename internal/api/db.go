package api

import (
	"context"
	"database/sql"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/sqlapi"
)

// DBHandler handles endpoints for the local DuckDB database that serves
// categorical values from extracts.
type DBHandler struct {
	db       *sql.DB
	extracts *service.ExtractService
}

// NewDBHandler creates a new database handler.
func NewDBHandler(db *sql.DB, extracts *service.ExtractService) *DBHandler {
	return &DBHandler{db: db, extracts: extracts}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/db/tables", h.ListTables, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/db/import", h.Import, huma.OperationTags("db"))
	huma.Get(api, "/api/v1/db/distinct", h.Distinct, huma.OperationTags("db"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	out := &TablesOutput{}
	out.Body.Tables = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out.Body.Tables = append(out.Body.Tables, name)
		}
	}
	return out, nil
}

// ImportOutput is the response for importing extracts.
type ImportOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"Tables created or replaced"`
	}
}

// Import loads every extract in the data directory into DuckDB.
func (h *DBHandler) Import(ctx context.Context, input *struct{}) (*ImportOutput, error) {
	if h.db == nil || h.extracts == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	tables, err := h.extracts.ImportAll(ctx, h.db)
	if err != nil {
		return nil, huma.Error500InternalServerError("Import failed", err)
	}
	out := &ImportOutput{}
	out.Body.Tables = tables
	return out, nil
}

// DistinctInput selects the column to list.
type DistinctInput struct {
	Table  string `query:"table" required:"true" doc:"Warehouse table name" example:"carto-dw-ac-7xhfwyml.shared.ford-blue-zones"`
	Column string `query:"column" required:"true" doc:"Column to list" example:"version"`
}

// DistinctOutput is the sorted distinct values of a column.
type DistinctOutput struct {
	Body struct {
		Values []string `json:"values" doc:"Sorted distinct values"`
	}
}

// Distinct lists the values a selector would offer for table.column.
func (h *DBHandler) Distinct(ctx context.Context, input *DistinctInput) (*DistinctOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	values, err := sqlapi.NewDuckDB(h.db).Distinct(ctx, input.Column, input.Table)
	if err != nil {
		if errors.Is(err, sqlapi.ErrNoRows) {
			return nil, huma.Error404NotFound(err.Error())
		}
		return nil, huma.Error400BadRequest(err.Error())
	}
	out := &DistinctOutput{}
	out.Body.Values = values
	return out, nil
}
