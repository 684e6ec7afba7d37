package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/logger"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/params"
	"github.com/joeblew999/plat-overlay/internal/render"
	"github.com/joeblew999/plat-overlay/internal/selector"
	"github.com/joeblew999/plat-overlay/internal/sqlapi"
	"github.com/joeblew999/plat-overlay/internal/viewstate"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrDemoNotFound    = errors.New("demo not found")
	ErrUnknownSurface  = errors.New("unknown surface")
	ErrUnknownSelector = errors.New("unknown selector")
	ErrInvalidBasemap  = errors.New("invalid basemap")
)

// Surface names.
const (
	SurfaceBasemap = "basemap"
	SurfaceOverlay = "overlay"
)

// Session is the explicit per-viewer context: parameter store, the two
// camera surfaces and their bridge, the orchestrator and the selectors.
type Session struct {
	id   string
	demo Demo
	log  *zerolog.Logger
	bus  *EventBus

	store     *params.Store
	basemap   *viewstate.Surface
	overlay   *viewstate.Surface
	bridge    *viewstate.Bridge
	orch      *render.Orchestrator
	out       *render.Overlay
	selectors map[string]*selector.Selector

	mu     sync.Mutex
	style  Basemap
	unsubs []func()
	closed bool
}

func newSession(id string, demo Demo, layers []render.ThemeLayer, fetcher sqlapi.Fetcher, bus *EventBus, log *zerolog.Logger) (*Session, error) {
	style, err := ParseBasemap(demo.Basemap)
	if err != nil {
		return nil, err
	}

	l := log.With().Str("session_id", id).Str("demo", demo.ID).Logger()
	s := &Session{
		id:        id,
		demo:      demo,
		log:       &l,
		bus:       bus,
		store:     params.New(),
		basemap:   viewstate.NewSurface(SurfaceBasemap, demo.InitialView),
		overlay:   viewstate.NewSurface(SurfaceOverlay, demo.InitialView),
		selectors: make(map[string]*selector.Selector),
		style:     style,
	}
	s.store.Seed(demo.Params, demo.Toggles)

	s.out = render.NewOverlay(func(p render.Publication) {
		s.emit(ResourceLayers, "published", fmt.Sprint(p.Seq))
	})
	s.orch = render.NewOrchestrator(demo.ID, s.store, layers, s.out, s.log)
	s.bridge = viewstate.Connect(s.basemap, s.overlay, viewstate.AllFields)

	s.unsubs = append(s.unsubs,
		s.store.Subscribe(func(c params.Change) {
			s.orch.Render()
			resource := ResourceParams
			if c.Kind == params.KindToggle {
				resource = ResourceToggles
			}
			s.emit(resource, "changed", c.Name)
		}),
		s.basemap.OnChange(func(viewstate.ViewState) { s.emit(ResourceView, "changed", SurfaceBasemap) }),
		s.overlay.OnChange(func(viewstate.ViewState) { s.emit(ResourceView, "changed", SurfaceOverlay) }),
	)

	if fetcher != nil {
		for _, def := range demo.Selectors {
			sel := selector.New(def, fetcher, s.store, s.log)
			sel.OnUpdate(func(param string, _ []string) { s.emit(ResourceSelectors, "updated", param) })
			s.selectors[def.Param] = sel
		}
	}
	return s, nil
}

func (s *Session) emit(resource, action, id string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(Event{Session: s.id, Resource: resource, Action: action, ID: id})
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Demo returns the demo the session was created from.
func (s *Session) Demo() Demo { return s.demo }

// Store returns the session's parameter store.
func (s *Session) Store() *params.Store { return s.store }

// Render publishes the layer set for the current parameters.
func (s *Session) Render() { s.orch.Render() }

// Layers returns the most recent publication.
func (s *Session) Layers() render.Publication { return s.out.Current() }

// Surface returns the named surface.
func (s *Session) Surface(name string) (*viewstate.Surface, error) {
	switch name {
	case SurfaceBasemap:
		return s.basemap, nil
	case SurfaceOverlay:
		return s.overlay, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSurface, name)
}

// Interact applies a user camera change on the named surface; the bridge
// carries it to the other surface.
func (s *Session) Interact(surface string, v viewstate.ViewState) error {
	sf, err := s.Surface(surface)
	if err != nil {
		return err
	}
	sf.Interact(v)
	return nil
}

// SetParam sets a query parameter. Parameters driven by a populated
// selector only accept one of its options.
func (s *Session) SetParam(name string, value any) error {
	if sel, ok := s.selectors[name]; ok && len(sel.Options()) > 0 {
		return sel.Select(fmt.Sprint(value))
	}
	s.store.Set(name, value)
	return nil
}

// SetToggle turns a layer toggle on or off.
func (s *Session) SetToggle(name string, on bool) {
	s.store.SetToggle(name, on)
}

// Basemap returns the active basemap.
func (s *Session) Basemap() Basemap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// SetBasemap swaps the basemap style. The camera carries over to the new
// basemap and the overlay is republished on top of it.
func (s *Session) SetBasemap(id string) (Basemap, error) {
	style, err := ParseBasemap(id)
	if err != nil {
		return Basemap{}, err
	}
	view := s.basemap.State()

	s.mu.Lock()
	s.style = style
	s.mu.Unlock()

	s.basemap.Jump(view)
	s.orch.Render()
	s.emit(ResourceBasemap, "changed", id)
	return style, nil
}

// Selectors returns the selector params in sorted order.
func (s *Session) Selectors() []string {
	names := make([]string, 0, len(s.selectors))
	for name := range s.selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectorOptions returns the options of the selector for param.
func (s *Session) SelectorOptions(param string) ([]string, error) {
	sel, ok := s.selectors[param]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, param)
	}
	return sel.Options(), nil
}

// Refresh repopulates the selector for param.
func (s *Session) Refresh(ctx context.Context, param string) (selector.Result, error) {
	sel, ok := s.selectors[param]
	if !ok {
		return selector.Result{}, fmt.Errorf("%w: %q", ErrUnknownSelector, param)
	}
	return sel.Refresh(ctx), nil
}

// RefreshAll populates every selector concurrently and waits for them.
func (s *Session) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sel := range s.selectors {
		wg.Add(1)
		go func(sel *selector.Selector) {
			defer wg.Done()
			sel.Refresh(ctx)
		}(sel)
	}
	wg.Wait()
}

// RefreshTable repopulates the selectors reading from table and returns how
// many were refreshed.
func (s *Session) RefreshTable(ctx context.Context, table string) int {
	n := 0
	for _, sel := range s.selectors {
		if sel.Definition().Table == table {
			sel.Refresh(ctx)
			n++
		}
	}
	return n
}

// State returns the externally visible state.
func (s *Session) State() SessionState {
	snap := s.store.Snapshot()
	pub := s.out.Current()

	sels := make(map[string][]string, len(s.selectors))
	for name, sel := range s.selectors {
		sels[name] = sel.Options()
	}

	return SessionState{
		ID:       s.id,
		Demo:     s.demo.ID,
		Basemap:  s.Basemap().ID,
		Params:   snap.Values(),
		Toggles:  snap.Toggles(),
		Revision: snap.Revision,
		Views: map[string]viewstate.Camera{
			SurfaceBasemap: s.basemap.State().Camera(),
			SurfaceOverlay: s.overlay.State().Camera(),
		},
		Selectors: sels,
		Layers:    render.Views(pub.Layers),
		Seq:       pub.Seq,

		Fingerprint: render.FormatFingerprint(pub.Fingerprint),
	}
}

// Close detaches the bridge and all subscriptions. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	s.bridge.Close()
	for _, fn := range unsubs {
		fn()
	}
	s.log.Debug().Msg("session closed")
}

// SessionManager creates, tracks and disposes sessions.
type SessionManager struct {
	catalog *Catalog
	fetcher sqlapi.Fetcher
	bus     *EventBus
	log     *zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a session manager. fetcher may be nil, in which
// case sessions have no selectors.
func NewSessionManager(catalog *Catalog, fetcher sqlapi.Fetcher, bus *EventBus, log *zerolog.Logger) *SessionManager {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionManager{
		catalog:  catalog,
		fetcher:  fetcher,
		bus:      bus,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create builds a session for demoID, renders it once and populates its
// selectors before returning.
func (m *SessionManager) Create(ctx context.Context, demoID string) (*Session, error) {
	demo, ok := m.catalog.Get(demoID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDemoNotFound, demoID)
	}
	layers, err := m.catalog.ThemeLayers(demo)
	if err != nil {
		return nil, err
	}

	s, err := newSession(logger.NewID(), demo, layers, m.fetcher, m.bus, m.log)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	metrics.SessionOpened()

	s.Render()
	s.RefreshAll(ctx)
	s.emit(ResourceSession, "created", s.id)
	s.log.Info().Int("layers", len(s.Layers().Layers)).Msg("session created")
	return s, nil
}

// Get returns a session by id.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns the ids of all open sessions, sorted.
func (m *SessionManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete disposes a session.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	s.Close()
	metrics.SessionClosed()
	s.emit(ResourceSession, "deleted", id)
	return nil
}

// RefreshTable repopulates the selectors reading from table in every open
// session.
func (m *SessionManager) RefreshTable(ctx context.Context, table string) int {
	n := 0
	for _, id := range m.List() {
		if s, err := m.Get(id); err == nil {
			n += s.RefreshTable(ctx, table)
		}
	}
	return n
}

// Close disposes every session.
func (m *SessionManager) Close() {
	for _, id := range m.List() {
		_ = m.Delete(id)
	}
}
