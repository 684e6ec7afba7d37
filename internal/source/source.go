// Package source describes query-backed tile sources. Descriptors are handed
// to the overlay renderer, which resolves them against the hosted maps API.
package source

import (
	"fmt"
	"regexp"
	"sort"
)

// Kind is the flavor of tiled query source.
type Kind string

const (
	// VectorQuery tiles the geometries returned by Query.
	VectorQuery Kind = "vector-query"
	// BoundaryQuery joins Query's properties onto a pre-built boundary tileset.
	BoundaryQuery Kind = "boundary-query"
)

// Template is a query with @name placeholders. Values are never formatted
// into the text; they travel alongside it as bound parameters.
type Template struct {
	Kind       Kind   `json:"kind" yaml:"kind" enum:"vector-query,boundary-query" doc:"Source kind"`
	Connection string `json:"connection" yaml:"connection" doc:"Warehouse connection name" example:"carto_dw"`
	Table      string `json:"tilesetTable,omitempty" yaml:"tilesetTable" doc:"Boundary tileset table (boundary-query only)"`
	Query      string `json:"query" yaml:"query" doc:"SQL with @name placeholders"`
	// MatchingColumn joins query rows to boundary features (boundary-query only).
	MatchingColumn string `json:"matchingColumn,omitempty" yaml:"matchingColumn" doc:"Column joining properties to boundaries" example:"geoid"`
}

var placeholder = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)`)

// Params returns the placeholder names in Query, sorted and de-duplicated.
func (t Template) Params() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(t.Query, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	sort.Strings(names)
	return names
}

// Validate checks the template is complete for its kind.
func (t Template) Validate() error {
	switch t.Kind {
	case VectorQuery:
	case BoundaryQuery:
		if t.Table == "" {
			return fmt.Errorf("boundary-query source requires a tileset table")
		}
	default:
		return fmt.Errorf("unknown source kind %q", t.Kind)
	}
	if t.Connection == "" {
		return fmt.Errorf("source requires a connection")
	}
	if t.Query == "" {
		return fmt.Errorf("source requires a query")
	}
	return nil
}

// Descriptor is a template together with its bound parameter values.
type Descriptor struct {
	Template
	Parameters map[string]any `json:"queryParameters" doc:"Bound parameter values"`
}

// Bind returns a descriptor carrying only the values the template names.
// Placeholders without a value are left unbound; the data source reports them.
func (t Template) Bind(lookup func(name string) (any, bool)) Descriptor {
	params := make(map[string]any)
	for _, n := range t.Params() {
		if v, ok := lookup(n); ok {
			params[n] = v
		}
	}
	return Descriptor{Template: t, Parameters: params}
}

// Missing returns the placeholder names without a bound value.
func (d Descriptor) Missing() []string {
	var out []string
	for _, n := range d.Params() {
		if _, ok := d.Parameters[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
