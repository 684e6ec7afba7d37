// Package classify maps categorical labels to fill colors.
//
// A Table is an ordered list of label/color rules plus a fallback color.
// Matching is exact and case-sensitive: the first rule whose label equals the
// input wins, anything else (including a missing label) gets the fallback.
package classify

// Color is an RGBA fill color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// RGBA returns a color with explicit alpha.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Slice returns the color as the array form deck.gl style renderers take.
// Opaque colors drop the alpha channel.
func (c Color) Slice() []uint8 {
	if c.A == 255 {
		return []uint8{c.R, c.G, c.B}
	}
	return []uint8{c.R, c.G, c.B, c.A}
}

// Rule pairs a label with its color.
type Rule struct {
	Label string `json:"label" doc:"Exact label value"`
	Color Color  `json:"color" doc:"Fill color"`
}

// Table is an immutable label to color lookup. Build one with NewTable.
type Table struct {
	name     string
	rules    []Rule
	fallback Color
}

// NewTable copies rules so later edits to the caller's slice do not leak in.
func NewTable(name string, fallback Color, rules ...Rule) Table {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return Table{name: name, rules: cp, fallback: fallback}
}

// Solid returns a table with no rules: every label gets c.
func Solid(name string, c Color) Table {
	return Table{name: name, fallback: c}
}

// Name returns the table name.
func (t Table) Name() string { return t.name }

// Fallback returns the color used for unmatched or missing labels.
func (t Table) Fallback() Color { return t.fallback }

// Rules returns a copy of the table's rules in declaration order.
func (t Table) Rules() []Rule {
	cp := make([]Rule, len(t.rules))
	copy(cp, t.rules)
	return cp
}

// Len returns the number of rules.
func (t Table) Len() int { return len(t.rules) }

// Color classifies a present label.
func (t Table) Color(label string) Color {
	for _, r := range t.rules {
		if r.Label == label {
			return r.Color
		}
	}
	return t.fallback
}

// Equal reports whether two tables have the same name, rules and fallback.
func (t Table) Equal(o Table) bool {
	if t.name != o.name || t.fallback != o.fallback || len(t.rules) != len(o.rules) {
		return false
	}
	for i := range t.rules {
		if t.rules[i] != o.rules[i] {
			return false
		}
	}
	return true
}

// Classify returns the color for label in table. A nil label means the
// feature carried no label at all.
func Classify(table Table, label *string) Color {
	if label == nil {
		return table.fallback
	}
	return table.Color(*label)
}

// LegendItem is one legend row.
type LegendItem struct {
	Label    string `json:"label" doc:"Legend label"`
	Color    Color  `json:"color" doc:"Legend color"`
	Fallback bool   `json:"fallback,omitempty" doc:"Whether this row is the fallback color"`
}

// Legend returns the rules followed by a trailing fallback row.
func (t Table) Legend() []LegendItem {
	items := make([]LegendItem, 0, len(t.rules)+1)
	for _, r := range t.rules {
		items = append(items, LegendItem{Label: r.Label, Color: r.Color})
	}
	items = append(items, LegendItem{Label: "Other", Color: t.fallback, Fallback: true})
	return items
}

// TableView is the serializable form of a Table.
type TableView struct {
	Name     string       `json:"name" doc:"Table name" example:"water_stress"`
	Rules    []Rule       `json:"rules" doc:"Ordered label rules"`
	Fallback Color        `json:"fallback" doc:"Color for unmatched or missing labels"`
	Legend   []LegendItem `json:"legend" doc:"Legend rows including the fallback"`
}

// View returns the serializable form of t.
func (t Table) View() TableView {
	return TableView{
		Name:     t.name,
		Rules:    t.Rules(),
		Fallback: t.fallback,
		Legend:   t.Legend(),
	}
}
