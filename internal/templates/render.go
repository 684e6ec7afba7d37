// Package templates holds the HTML fragments streamed to Datastar pages:
// selector options, layer rows and their legends.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"sort"
	"strings"

	"github.com/joeblew999/plat-overlay/internal/classify"
)

//go:embed fragments/*.html
var fragments embed.FS

var funcMap = template.FuncMap{
	"css": cssColor,
}

// cssColor formats a classification color as a CSS rgba() value with the
// alpha channel scaled to [0,1].
func cssColor(c classify.Color) template.CSS {
	return template.CSS(fmt.Sprintf("rgba(%d,%d,%d,%.3g)", c.R, c.G, c.B, float64(c.A)/255))
}

// Renderer executes named fragments. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// Default returns a renderer over the fragments compiled into the binary.
func Default() (*Renderer, error) {
	return NewFS(fragments, "fragments/*.html")
}

// NewFS parses the files in fsys matching pattern. Each file defines one or
// more fragments with {{define}}.
func NewFS(fsys fs.FS, pattern string) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("parse fragments %s: %w", pattern, err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes fragment name with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer appends fragment name to buf.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	if r.tmpl.Lookup(name) == nil {
		return fmt.Errorf("unknown fragment %q", name)
	}
	return r.tmpl.ExecuteTemplate(buf, name, data)
}

// Names lists the defined fragments, leaving out the files that hold them.
func (r *Renderer) Names() []string {
	var names []string
	for _, t := range r.tmpl.Templates() {
		if t.Tree != nil && t.Name() != "" && !strings.HasSuffix(t.Name(), ".html") {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	return names
}
