// Package stream contains the Datastar SSE handlers that keep a browser map
// page in sync with its session.
package stream

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/humastar"
	"github.com/joeblew999/plat-overlay/internal/logger"
	"github.com/joeblew999/plat-overlay/internal/render"
	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/templates"
)

// Handler streams session changes to the Datastar UI.
type Handler struct {
	humastar.Handler
	sessions *service.SessionManager
	bus      *service.EventBus
	log      *zerolog.Logger
}

// New creates a stream handler.
func New(sessions *service.SessionManager, bus *service.EventBus, renderer *templates.Renderer, log *zerolog.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
		bus:      bus,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/sessions/{id}/events", h.Events, huma.OperationTags("stream"))
	huma.Post(api, "/api/v1/sessions/{id}/signals", h.ApplySignals, huma.OperationTags("stream"))
}

type EventsInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type SignalsInput struct {
	ID      string `path:"id" doc:"Session ID"`
	RawBody []byte
}

// Events pushes the full session state, then every change of that session,
// until the client disconnects or the session is closed. The subscription
// is taken before the lookup so a delete racing the lookup still closes
// the stream.
func (h *Handler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	ch := h.bus.Subscribe(input.ID)
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		h.bus.Unsubscribe(ch)
		return nil, huma.Error404NotFound(err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		defer h.bus.Unsubscribe(ch)
		h.log.Debug().Str("session_id", s.ID()).Msg("event stream opened")

		h.pushAll(sse, s)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Resource == service.ResourceSession && ev.Action == "deleted" {
					sse.Signals(map[string]any{"closed": true})
					return
				}
				h.push(sse, s, ev)
				sse.Event("overlay-changed", map[string]any{
					"resource": ev.Resource,
					"action":   ev.Action,
					"id":       ev.ID,
				})
			}
		}
	}), nil
}

func (h *Handler) pushAll(sse humastar.SSE, s *service.Session) {
	sse.Signals(stateSignals(s.State()))
	for _, param := range s.Selectors() {
		h.pushSelector(sse, s, param)
	}
	h.pushLayers(sse, s)
}

func (h *Handler) push(sse humastar.SSE, s *service.Session, ev service.Event) {
	st := s.State()
	switch ev.Resource {
	case service.ResourceSelectors:
		h.pushSelector(sse, s, ev.ID)
	case service.ResourceLayers:
		h.pushLayers(sse, s)
	case service.ResourceView:
		sse.Signals(map[string]any{"views": st.Views})
	case service.ResourceParams, service.ResourceToggles:
		sse.Signals(map[string]any{"params": st.Params, "toggles": st.Toggles, "revision": st.Revision})
	case service.ResourceBasemap:
		sse.Signals(map[string]any{"basemap": st.Basemap})
	}
}

func (h *Handler) pushSelector(sse humastar.SSE, s *service.Session, param string) {
	opts, err := s.SelectorOptions(param)
	if err != nil {
		return
	}
	current := ""
	if v, ok := s.Store().Get(param); ok {
		current = fmt.Sprint(v)
	}
	sse.Patch(h.Options("Select "+param, current, opts), "#selector-"+param)
}

func (h *Handler) pushLayers(sse humastar.SSE, s *service.Session) {
	pub := s.Layers()
	views := render.Views(pub.Layers)
	items := make([]any, len(views))
	for i, v := range views {
		items[i] = v
	}
	sse.Patch(h.Rows("layer-row", items, humastar.Empty{Title: "No layers", Message: "Turn a layer on to see it here."}), "#layer-list")
	sse.Signals(map[string]any{
		"seq":         pub.Seq,
		"fingerprint": render.FormatFingerprint(pub.Fingerprint),
		"layers":      views,
	})
}

func stateSignals(st service.SessionState) map[string]any {
	return map[string]any{
		"session":  st.ID,
		"demo":     st.Demo,
		"basemap":  st.Basemap,
		"params":   st.Params,
		"toggles":  st.Toggles,
		"revision": st.Revision,
		"views":    st.Views,

		"fingerprint": st.Fingerprint,
	}
}

// ApplySignals takes the signals a Datastar page posts and applies those
// naming a known toggle, parameter or selector. Everything else is ignored.
func (h *Handler) ApplySignals(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	signals, err := humastar.ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		applied, errs := apply(s, signals)
		if len(errs) > 0 {
			sse.Error(errs[0].Error())
		} else if applied > 0 {
			sse.Success(fmt.Sprintf("%d change(s) applied", applied))
		}
		sse.Signals(stateSignals(s.State()))
	}), nil
}

func apply(s *service.Session, signals humastar.Signals) (int, []error) {
	st := s.State()

	applied := 0
	var errs []error
	for _, k := range signals.Keys() {
		if on, known := st.Toggles[k]; known {
			if v, ok := signals.Bool(k); ok && v != on {
				s.SetToggle(k, v)
				applied++
			}
			continue
		}
		cur, known := st.Params[k]
		if _, sel := st.Selectors[k]; sel || known {
			v, ok := signals.Scalar(k)
			if !ok || (known && fmt.Sprint(v) == fmt.Sprint(cur)) {
				continue
			}
			if err := s.SetParam(k, v); err != nil {
				errs = append(errs, err)
				continue
			}
			applied++
		}
	}
	return applied, errs
}
