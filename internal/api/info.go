package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Capabilities describes what the running server was started with.
type Capabilities struct {
	DataDir string
	Fetcher string
	DB      bool
	Redis   bool
	Changes bool
}

type InfoHandler struct {
	caps Capabilities
}

func NewInfoHandler(caps Capabilities) *InfoHandler {
	return &InfoHandler{caps: caps}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Fetcher  string   `json:"fetcher" doc:"Backend populating selectors" enum:"sqlapi,duckdb,none"`
	DB       bool     `json:"db" doc:"Whether the local database is available"`
	Features []string `json:"features" doc:"Enabled features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"classification", "sessions", "datastar"}
	if h.caps.Fetcher != "none" {
		features = append(features, "selectors")
	}
	if h.caps.DB {
		features = append(features, "duckdb", "extracts")
	}
	if h.caps.Redis {
		features = append(features, "redis-cache")
	}
	if h.caps.Changes {
		features = append(features, "change-events")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-overlay",
		Version:  "0.1.0",
		DataDir:  h.caps.DataDir,
		Fetcher:  h.caps.Fetcher,
		DB:       h.caps.DB,
		Features: features,
	}}, nil
}
