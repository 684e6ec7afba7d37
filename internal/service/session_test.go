package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/joeblew999/plat-overlay/internal/sqlapi"
	"github.com/joeblew999/plat-overlay/internal/viewstate"
)

type fakeFetcher struct {
	mu     sync.Mutex
	values map[string][]string
	calls  int
}

func (f *fakeFetcher) Distinct(_ context.Context, column, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	v, ok := f.values[column]
	if !ok {
		return nil, sqlapi.ErrNoRows
	}
	return append([]string(nil), v...), nil
}

func newManager(t *testing.T, f sqlapi.Fetcher) (*SessionManager, *EventBus) {
	t.Helper()
	bus := NewEventBus()
	m := NewSessionManager(NewCatalog("", "carto_dw"), f, bus, nil)
	t.Cleanup(m.Close)
	return m, bus
}

func layerIDs(s *Session) []string {
	var ids []string
	for _, l := range s.Layers().Layers {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestSession_WaterRiskInitialRender(t *testing.T) {
	m, _ := newManager(t, nil)
	s, err := m.Create(context.Background(), "water-risk")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	pub := s.Layers()
	if pub.Seq != 1 {
		t.Fatalf("seq=%d want 1", pub.Seq)
	}
	if got := layerIDs(s); len(got) != 1 || got[0] != "water-stress" {
		t.Fatalf("layers=%v", got)
	}
	bound := pub.Layers[0].Source.Parameters
	if bound["selectedYear"] != 2020 || bound["selectedScenario"] != "business_as_usual" {
		t.Fatalf("bound=%v", bound)
	}

	s.SetToggle("waterSupply", true)
	if got := layerIDs(s); len(got) != 2 || got[0] != "water-stress" || got[1] != "water-supply" {
		t.Fatalf("after toggle layers=%v", got)
	}
	s.SetToggle("waterStress", false)
	if got := layerIDs(s); len(got) != 1 || got[0] != "water-supply" {
		t.Fatalf("after untoggle layers=%v", got)
	}
}

func TestSession_StateFingerprintTracksParams(t *testing.T) {
	m, _ := newManager(t, nil)
	s, _ := m.Create(context.Background(), "water-risk")

	first := s.State()
	if len(first.Fingerprint) != 16 {
		t.Fatalf("fingerprint=%q", first.Fingerprint)
	}
	if err := s.SetParam("selectedYear", 2040); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	changed := s.State()
	if changed.Fingerprint == first.Fingerprint {
		t.Fatalf("fingerprint unchanged after SetParam")
	}
	if changed.Fingerprint != fmt.Sprintf("%016x", s.Layers().Fingerprint) {
		t.Fatalf("state fingerprint %s does not match publication", changed.Fingerprint)
	}
	if err := s.SetParam("selectedYear", 2020); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if got := s.State().Fingerprint; got != first.Fingerprint {
		t.Fatalf("restoring parameters gave %s want %s", got, first.Fingerprint)
	}
}

func TestSession_SelectorsPopulateAndSelectFirst(t *testing.T) {
	f := &fakeFetcher{values: map[string][]string{"version": {"v1", "v2"}}}
	m, _ := newManager(t, f)

	s, err := m.Create(context.Background(), "blue-zones")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	opts, err := s.SelectorOptions("version")
	if err != nil {
		t.Fatalf("SelectorOptions: %v", err)
	}
	if len(opts) != 2 || opts[0] != "v1" {
		t.Fatalf("options=%v", opts)
	}
	if v, _ := s.Store().Get("version"); v != "v1" {
		t.Fatalf("version=%v want v1", v)
	}
	pub := s.Layers()
	if pub.Layers[0].Source.Parameters["version"] != "v1" {
		t.Fatalf("published version=%v", pub.Layers[0].Source.Parameters["version"])
	}

	if err := s.SetParam("version", "v2"); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if got := s.Layers().Layers[0].Source.Parameters["version"]; got != "v2" {
		t.Fatalf("after select version=%v", got)
	}
	if err := s.SetParam("version", "v9"); err == nil {
		t.Fatalf("selecting a non-option should fail")
	}
	if _, err := s.Refresh(context.Background(), "nope"); !errors.Is(err, ErrUnknownSelector) {
		t.Fatalf("unknown selector err=%v", err)
	}
}

func TestSession_SelectorFailureLeavesDefaults(t *testing.T) {
	f := &fakeFetcher{values: map[string][]string{}}
	m, _ := newManager(t, f)

	s, err := m.Create(context.Background(), "water-risk")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	opts, _ := s.SelectorOptions("selectedYear")
	if len(opts) != 0 {
		t.Fatalf("options=%v want none", opts)
	}
	if v, _ := s.Store().Get("selectedYear"); v != 2020 {
		t.Fatalf("selectedYear=%v", v)
	}
	if err := s.SetParam("selectedYear", 2040); err != nil {
		t.Fatalf("SetParam without options: %v", err)
	}
}

func TestSession_ViewBridge(t *testing.T) {
	m, _ := newManager(t, nil)
	s, _ := m.Create(context.Background(), "water-risk")

	v := viewstate.ViewState{Longitude: 10, Latitude: 20, Zoom: 5, Pitch: 30, Bearing: 15}
	if err := s.Interact(SurfaceBasemap, v); err != nil {
		t.Fatalf("Interact: %v", err)
	}
	if got := s.State().Views[SurfaceOverlay].ViewState; got != v {
		t.Fatalf("overlay=%+v want %+v", got, v)
	}
	if got := s.State().Views[SurfaceOverlay].Tile; got != (viewstate.TileRef{Z: 5, X: 16, Y: 14}) {
		t.Fatalf("overlay tile=%+v", got)
	}

	w := viewstate.ViewState{Longitude: -3, Latitude: 7, Zoom: 9}
	if err := s.Interact(SurfaceOverlay, w); err != nil {
		t.Fatalf("Interact: %v", err)
	}
	if got := s.State().Views[SurfaceBasemap].ViewState; got != w {
		t.Fatalf("basemap=%+v want %+v", got, w)
	}
	if err := s.Interact("sky", w); !errors.Is(err, ErrUnknownSurface) {
		t.Fatalf("unknown surface err=%v", err)
	}
}

func TestSession_SetBasemapPreservesView(t *testing.T) {
	m, _ := newManager(t, nil)
	s, _ := m.Create(context.Background(), "water-risk")

	v := viewstate.ViewState{Longitude: 1, Latitude: 2, Zoom: 6}
	_ = s.Interact(SurfaceOverlay, v)
	before := s.Layers().Seq

	b, err := s.SetBasemap("satellite.abc123")
	if err != nil {
		t.Fatalf("SetBasemap: %v", err)
	}
	if b.Provider != "google" || s.Basemap().ID != "satellite.abc123" {
		t.Fatalf("basemap=%+v", s.Basemap())
	}
	st := s.State()
	if st.Views[SurfaceBasemap].ViewState != v || st.Views[SurfaceOverlay].ViewState != v {
		t.Fatalf("views=%+v want %+v", st.Views, v)
	}
	if s.Layers().Seq != before+1 {
		t.Fatalf("basemap swap should republish the overlay")
	}
	if _, err := s.SetBasemap("streets"); !errors.Is(err, ErrInvalidBasemap) {
		t.Fatalf("err=%v", err)
	}
}

func TestSession_EventsAndDispose(t *testing.T) {
	m, bus := newManager(t, nil)
	ch := bus.Subscribe("")
	defer bus.Unsubscribe(ch)

	s, _ := m.Create(context.Background(), "water-risk")
	s.SetToggle("waterSupply", true)

	seen := map[string]bool{}
	for len(ch) > 0 {
		e := <-ch
		if e.Session != s.ID() {
			t.Fatalf("event for session %q", e.Session)
		}
		seen[e.Resource+"/"+e.Action] = true
	}
	for _, want := range []string{"layers/published", "toggles/changed", "session/created"} {
		if !seen[want] {
			t.Fatalf("missing event %s in %v", want, seen)
		}
	}

	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get after delete err=%v", err)
	}
	if err := m.Delete(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second delete err=%v", err)
	}

	seq := s.Layers().Seq
	s.SetToggle("waterStress", false)
	if s.Layers().Seq != seq {
		t.Fatalf("disposed session still renders")
	}
	if err := s.Interact(SurfaceBasemap, viewstate.ViewState{Zoom: 1}); err != nil {
		t.Fatalf("Interact: %v", err)
	}
	if got := s.State().Views[SurfaceOverlay].Zoom; got == 1 {
		t.Fatalf("disposed bridge still forwards")
	}
}

func TestSessionManager_UnknownDemo(t *testing.T) {
	m, _ := newManager(t, nil)
	if _, err := m.Create(context.Background(), "missing"); !errors.Is(err, ErrDemoNotFound) {
		t.Fatalf("err=%v", err)
	}
	if len(m.List()) != 0 {
		t.Fatalf("sessions=%v", m.List())
	}
}

func TestSessionManager_RefreshTable(t *testing.T) {
	f := &fakeFetcher{values: map[string][]string{"version": {"v1"}}}
	m, _ := newManager(t, f)
	s, err := m.Create(context.Background(), "blue-zones")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Create(context.Background(), "sample-boundary"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.mu.Lock()
	f.values["version"] = []string{"v3", "v4"}
	f.mu.Unlock()

	if n := m.RefreshTable(context.Background(), blueZonesTable); n != 1 {
		t.Fatalf("refreshed=%d want 1", n)
	}
	opts, _ := s.SelectorOptions("version")
	if len(opts) != 2 || opts[0] != "v3" {
		t.Fatalf("options=%v", opts)
	}
	if v, _ := s.Store().Get("version"); v != "v3" {
		t.Fatalf("version=%v want v3 after its option vanished", v)
	}
}
