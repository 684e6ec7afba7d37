package classify

import (
	"fmt"
	"math"

	"gopkg.in/go-playground/colors.v1"
	"gopkg.in/yaml.v3"
)

// ColorValue decodes a color written either as [r, g, b(, a)] or as a CSS
// color string ("#ffff99", "rgb(255,255,153)", "rgba(0,0,255,0.3)").
type ColorValue Color

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ColorValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var parts []int
		if err := node.Decode(&parts); err != nil {
			return fmt.Errorf("color at line %d: %w", node.Line, err)
		}
		if len(parts) != 3 && len(parts) != 4 {
			return fmt.Errorf("color at line %d: want 3 or 4 components, got %d", node.Line, len(parts))
		}
		out := [4]uint8{0, 0, 0, 255}
		for i, p := range parts {
			if p < 0 || p > 255 {
				return fmt.Errorf("color at line %d: component %d out of range", node.Line, p)
			}
			out[i] = uint8(p)
		}
		*c = ColorValue(RGBA(out[0], out[1], out[2], out[3]))
		return nil
	case yaml.ScalarNode:
		parsed, err := colors.Parse(node.Value)
		if err != nil {
			return fmt.Errorf("color at line %d: %w", node.Line, err)
		}
		rgba := parsed.ToRGBA()
		*c = ColorValue(RGBA(rgba.R, rgba.G, rgba.B, uint8(math.Round(rgba.A*255))))
		return nil
	default:
		return fmt.Errorf("color at line %d: unsupported yaml node", node.Line)
	}
}

// TableSpec is the YAML form of a Table. A missing fallback means Gray.
type TableSpec struct {
	Name     string      `yaml:"name"`
	Fallback *ColorValue `yaml:"fallback"`
	Rules    []struct {
		Label string     `yaml:"label"`
		Color ColorValue `yaml:"color"`
	} `yaml:"rules"`
}

// Build validates the declared rules and returns the immutable table.
func (s TableSpec) Build() (Table, error) {
	if s.Name == "" {
		return Table{}, fmt.Errorf("classification table requires a name")
	}
	seen := make(map[string]struct{}, len(s.Rules))
	rules := make([]Rule, 0, len(s.Rules))
	for _, r := range s.Rules {
		if _, dup := seen[r.Label]; dup {
			return Table{}, fmt.Errorf("table %q: duplicate label %q", s.Name, r.Label)
		}
		seen[r.Label] = struct{}{}
		rules = append(rules, Rule{Label: r.Label, Color: Color(r.Color)})
	}
	fallback := Gray
	if s.Fallback != nil {
		fallback = Color(*s.Fallback)
	}
	return NewTable(s.Name, fallback, rules...), nil
}
