// Package humastar streams session state to Datastar pages from huma
// handlers: fragment patches for selectors and layer lists, signal patches
// for everything else.
package humastar

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-overlay/internal/templates"
)

// Handler is embedded by stream handlers. Renderer supplies the fragments.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream wraps fn in a huma streaming response.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

// Options renders the <option> list of a selector. A placeholder entry with
// an empty value comes first; the value equal to current is selected.
func (h *Handler) Options(placeholder, current string, values []string) string {
	var buf bytes.Buffer
	_ = h.Renderer.RenderToBuffer(&buf, "select-option", option{Label: placeholder})
	for _, v := range values {
		_ = h.Renderer.RenderToBuffer(&buf, "select-option", option{Value: v, Selected: v == current})
	}
	return buf.String()
}

// Empty is the placeholder shown when a list has no rows.
type Empty struct {
	Title   string
	Message string
}

// Rows renders tmpl once per item, or the empty state when there are none.
func (h *Handler) Rows(tmpl string, items []any, empty Empty) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		_ = h.Renderer.RenderToBuffer(&buf, "empty-state", empty)
		return buf.String()
	}
	for _, item := range items {
		_ = h.Renderer.RenderToBuffer(&buf, tmpl, item)
	}
	return buf.String()
}

// SSE is a Datastar event generator bound to one response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE starts a Datastar stream on the response behind a huma context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the inner HTML of the element matching selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Signals merges signals into the page state.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Error shows msg as an error notice.
func (s SSE) Error(msg string) {
	s.Signals(map[string]any{"error": msg, "success": ""})
}

// Success shows msg as a success notice.
func (s SSE) Success(msg string) {
	s.Signals(map[string]any{"success": msg, "error": ""})
}

// Event dispatches a DOM CustomEvent named name with detail on the page.
func (s SSE) Event(name string, detail any) {
	s.DispatchCustomEvent(name, detail)
}

// Signals is the flat JSON object a Datastar page posts.
type Signals map[string]any

var errNotObject = errors.New("signals must be a JSON object")

// ParseSignals decodes a posted signal object.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	if signals == nil {
		return nil, errNotObject
	}
	return signals, nil
}

// Keys returns the signal names in sorted order.
func (s Signals) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Bool returns the boolean signal key; ok is false when it is missing or
// not a boolean.
func (s Signals) Bool(key string) (v bool, ok bool) {
	v, ok = s[key].(bool)
	return v, ok
}

// Scalar returns a string or number signal. Objects, arrays, booleans and
// null are not query parameter values.
func (s Signals) Scalar(key string) (any, bool) {
	switch v := s[key].(type) {
	case string, float64:
		return v, true
	}
	return nil, false
}
