// Package service contains the demo catalog and the map sessions built from it.
package service

import (
	"github.com/joeblew999/plat-overlay/internal/classify"
	"github.com/joeblew999/plat-overlay/internal/render"
	"github.com/joeblew999/plat-overlay/internal/selector"
	"github.com/joeblew999/plat-overlay/internal/source"
	"github.com/joeblew999/plat-overlay/internal/viewstate"
)

// Demo is the static definition of one map demo.
// Single source of truth: Huma reads the tags for OpenAPI + validation and
// the YAML catalog decodes straight into it.
type Demo struct {
	ID          string                `json:"id,omitempty" yaml:"id" doc:"Unique demo identifier" example:"water-risk"`
	Title       string                `json:"title" yaml:"title" required:"true" minLength:"1" maxLength:"100" doc:"Display title" example:"Water risk projections"`
	InitialView viewstate.ViewState   `json:"initialView" yaml:"initialView" doc:"Camera both surfaces start at"`
	Basemap     string                `json:"basemap" yaml:"basemap" doc:"Initial basemap id" example:"positron" default:"positron"`
	Params      map[string]any        `json:"params,omitempty" yaml:"params" doc:"Default query parameter values"`
	Toggles     map[string]bool       `json:"toggles,omitempty" yaml:"toggles" doc:"Default layer toggles"`
	Selectors   []selector.Definition `json:"selectors,omitempty" yaml:"selectors" doc:"Selectors populated from categorical values"`
	Layers      []LayerSpec           `json:"layers" yaml:"layers" required:"true" minItems:"1" doc:"Thematic layers in draw order"`
}

// LayerSpec is the catalog form of a thematic layer. Table names a
// classification table known to the catalog.
type LayerSpec struct {
	ID        string               `json:"id" yaml:"id" required:"true" doc:"Layer identifier" example:"water-stress"`
	Toggle    string               `json:"toggle,omitempty" yaml:"toggle" doc:"Toggle enabling the layer; empty means always on" example:"waterStress"`
	Source    source.Template      `json:"source" yaml:"source" doc:"Query template"`
	Table     string               `json:"table" yaml:"table" required:"true" doc:"Classification table name" example:"water_stress"`
	Style     render.Style         `json:"style" yaml:"style" doc:"Drawing hints"`
	LineColor *classify.ColorValue `json:"-" yaml:"lineColor"`
}

// SessionState is the externally visible state of a session.
type SessionState struct {
	ID          string                      `json:"id" doc:"Session identifier"`
	Demo        string                      `json:"demo" doc:"Demo the session was created from"`
	Basemap     string                      `json:"basemap" doc:"Active basemap id"`
	Params      map[string]any              `json:"params" doc:"Current query parameters"`
	Toggles     map[string]bool             `json:"toggles" doc:"Current layer toggles"`
	Revision    uint64                      `json:"revision" doc:"Parameter store revision"`
	Views       map[string]viewstate.Camera `json:"views" doc:"Camera of each surface"`
	Selectors   map[string][]string         `json:"selectors" doc:"Options of each selector"`
	Layers      []render.LayerView          `json:"layers" doc:"Most recently published layers"`
	Seq         uint64                      `json:"seq" doc:"Publish sequence number"`
	Fingerprint string                      `json:"fingerprint" doc:"Hash of the parameters the published layers were bound from"`
}

// ExtractFile is a local data extract that can be loaded into DuckDB.
type ExtractFile struct {
	Name     string `json:"name" doc:"File name"`
	Table    string `json:"table" doc:"DuckDB table the extract loads into"`
	Size     string `json:"size" doc:"Human-readable size"`
	FileType string `json:"fileType" doc:"Extract format" enum:"CSV,Parquet"`
}
