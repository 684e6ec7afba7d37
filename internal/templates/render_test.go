package templates

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeblew999/plat-overlay/internal/classify"
	"github.com/joeblew999/plat-overlay/internal/render"
)

func TestDefault_SelectOption(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	got, err := r.Render("select-option", map[string]any{"Value": "2030", "Label": "", "Selected": true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != `<option value="2030" selected>2030</option>` {
		t.Fatalf("got %q", got)
	}
}

func TestDefault_LayerRowLegend(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	view := render.LayerView{
		ID:             "water-stress",
		Classification: classify.WaterStress.View(),
	}
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, "layer-row", view); err != nil {
		t.Fatalf("RenderToBuffer: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, `id="layer-water-stress"`) {
		t.Fatalf("missing layer id: %s", html)
	}
	if !strings.Contains(html, "Extremely high (&gt;80%)") {
		t.Fatalf("missing legend label: %s", html)
	}
	if !strings.Contains(html, "rgba(220,220,220,1)") {
		t.Fatalf("missing fallback swatch: %s", html)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, _ := Default()
	if _, err := r.Render("nope", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestDefault_Names(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	got := strings.Join(r.Names(), ",")
	for _, want := range []string{"empty-state", "layer-row", "legend-row", "select-option"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Names=%s missing %s", got, want)
		}
	}
}

func TestCSSColor(t *testing.T) {
	if got := cssColor(classify.RGBA(0, 0, 255, 77)); got != "rgba(0,0,255,0.302)" {
		t.Fatalf("got %q", got)
	}
}
