// Package render turns the current query parameters into the ordered layer
// list an overlay renderer draws.
package render

import (
	"reflect"

	"github.com/joeblew999/plat-overlay/internal/classify"
	"github.com/joeblew999/plat-overlay/internal/source"
)

// Style carries the drawing hints of a layer.
type Style struct {
	Opacity            float64         `json:"opacity" yaml:"opacity" minimum:"0" maximum:"1" doc:"Layer opacity (0-1)" example:"0.8"`
	LineWidth          float64         `json:"lineWidth,omitempty" yaml:"lineWidth" doc:"Outline width"`
	LineWidthUnits     string          `json:"lineWidthUnits,omitempty" yaml:"lineWidthUnits" enum:"pixels,meters" doc:"Outline width units"`
	LineWidthMinPixels float64         `json:"lineWidthMinPixels,omitempty" yaml:"lineWidthMinPixels" doc:"Minimum outline width in pixels"`
	LineColor          *classify.Color `json:"lineColor,omitempty" yaml:"-" doc:"Outline color"`
	Pickable           bool            `json:"pickable" yaml:"pickable" doc:"Whether features respond to picking"`
}

func (s Style) equal(o Style) bool {
	if (s.LineColor == nil) != (o.LineColor == nil) {
		return false
	}
	if s.LineColor != nil && *s.LineColor != *o.LineColor {
		return false
	}
	a, b := s, o
	a.LineColor, b.LineColor = nil, nil
	return a == b
}

// ThemeLayer is the static definition of one thematic layer. Toggle names the
// store toggle that enables it; an empty Toggle means always on.
type ThemeLayer struct {
	ID     string
	Toggle string
	Source source.Template
	Table  classify.Table
	Style  Style
}

// LayerDescriptor is one renderable layer: bound data source plus styling.
// It is built fresh on every render and never mutated afterwards.
type LayerDescriptor struct {
	ID      string
	Source  source.Descriptor
	Visible bool
	Style   Style
	table   classify.Table
}

// FillColor is the layer's styling function.
func (d LayerDescriptor) FillColor(label *string) classify.Color {
	return classify.Classify(d.table, label)
}

// Table returns the classification table behind FillColor.
func (d LayerDescriptor) Table() classify.Table { return d.table }

// Equal reports structural equality: same id, query binding, visibility,
// style and classification table.
func (d LayerDescriptor) Equal(o LayerDescriptor) bool {
	return d.ID == o.ID &&
		d.Visible == o.Visible &&
		d.Style.equal(o.Style) &&
		d.table.Equal(o.table) &&
		d.Source.Template == o.Source.Template &&
		reflect.DeepEqual(d.Source.Parameters, o.Source.Parameters)
}

// EqualLayers compares two published sequences element by element.
func EqualLayers(a, b []LayerDescriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// LayerView is the wire form of a LayerDescriptor.
type LayerView struct {
	ID             string             `json:"id" doc:"Layer identifier" example:"water-stress"`
	Source         source.Descriptor  `json:"source" doc:"Bound data source"`
	Visible        bool               `json:"visible" doc:"Visibility flag"`
	Style          Style              `json:"style" doc:"Drawing hints"`
	Classification classify.TableView `json:"classification" doc:"Label to fill color table"`
}

// View returns the wire form of d.
func (d LayerDescriptor) View() LayerView {
	return LayerView{
		ID:             d.ID,
		Source:         d.Source,
		Visible:        d.Visible,
		Style:          d.Style,
		Classification: d.table.View(),
	}
}

// Views converts a published sequence to wire form.
func Views(layers []LayerDescriptor) []LayerView {
	out := make([]LayerView, len(layers))
	for i, l := range layers {
		out[i] = l.View()
	}
	return out
}
