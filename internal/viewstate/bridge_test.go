package viewstate

import "testing"

var detroit = ViewState{Longitude: -83.0658, Latitude: 42.3514, Zoom: 12}

func TestBridge_PrimaryPushReadsBackOnSecondary(t *testing.T) {
	overlay := NewSurface("overlay", detroit)
	basemap := NewSurface("basemap", detroit)
	b := Connect(overlay, basemap, AllFields)
	defer b.Close()

	next := ViewState{Longitude: -110.55, Latitude: 41.8, Zoom: 3, Pitch: 30, Bearing: 15}
	overlay.Interact(next)

	if got := basemap.State(); got != next {
		t.Fatalf("basemap=%+v want %+v", got, next)
	}
}

func TestBridge_SecondaryPushReadsBackOnPrimary(t *testing.T) {
	overlay := NewSurface("overlay", detroit)
	basemap := NewSurface("basemap", detroit)
	b := Connect(overlay, basemap, 0)
	defer b.Close()

	next := detroit
	next.Zoom = 14
	basemap.Interact(next)

	if got := overlay.State(); got != next {
		t.Fatalf("overlay=%+v want %+v", got, next)
	}
}

func TestBridge_NoFeedbackLoop(t *testing.T) {
	overlay := NewSurface("overlay", detroit)
	basemap := NewSurface("basemap", detroit)
	b := Connect(overlay, basemap, AllFields)
	defer b.Close()

	var overlayFired, basemapFired int
	unsubA := overlay.OnChange(func(ViewState) { overlayFired++ })
	unsubB := basemap.OnChange(func(ViewState) { basemapFired++ })
	defer unsubA()
	defer unsubB()

	overlay.Interact(ViewState{Zoom: 5})

	if overlayFired != 1 {
		t.Fatalf("overlay handlers fired %d times, want 1", overlayFired)
	}
	if basemapFired != 0 {
		t.Fatalf("programmatic jump raised %d basemap notifications", basemapFired)
	}
}

func TestBridge_FieldSubset(t *testing.T) {
	overlay := NewSurface("overlay", detroit)
	start := ViewState{Longitude: 1, Latitude: 2, Zoom: 3, Pitch: 4, Bearing: 5}
	basemap := NewSurface("basemap", start)
	b := Connect(overlay, basemap, FieldCenter|FieldZoom)
	defer b.Close()

	overlay.Interact(ViewState{Longitude: 10, Latitude: 20, Zoom: 30, Pitch: 40, Bearing: 50})

	want := ViewState{Longitude: 10, Latitude: 20, Zoom: 30, Pitch: 4, Bearing: 5}
	if got := basemap.State(); got != want {
		t.Fatalf("basemap=%+v want %+v", got, want)
	}
}

func TestBridge_CloseDetaches(t *testing.T) {
	overlay := NewSurface("overlay", detroit)
	basemap := NewSurface("basemap", detroit)
	b := Connect(overlay, basemap, AllFields)
	b.Close()
	b.Close()

	overlay.Interact(ViewState{Zoom: 1})
	if got := basemap.State(); got != detroit {
		t.Fatalf("closed bridge still synced: %+v", got)
	}
}

func TestBridge_LastWriteWins(t *testing.T) {
	overlay := NewSurface("overlay", detroit)
	basemap := NewSurface("basemap", detroit)
	b := Connect(overlay, basemap, AllFields)
	defer b.Close()

	overlay.Interact(ViewState{Zoom: 4})
	basemap.Interact(ViewState{Zoom: 7})

	if overlay.State().Zoom != 7 || basemap.State().Zoom != 7 {
		t.Fatalf("overlay=%v basemap=%v want both 7", overlay.State().Zoom, basemap.State().Zoom)
	}
}

func TestViewState_CenterTile(t *testing.T) {
	tile := ViewState{Longitude: 0.1, Latitude: 0.1, Zoom: 1.7}.CenterTile()
	if tile.Z != 1 || tile.X != 1 || tile.Y != 0 {
		t.Fatalf("tile=%+v want 1/1/0", tile)
	}
	if p := detroit.Center(); p.Lon() != detroit.Longitude || p.Lat() != detroit.Latitude {
		t.Fatalf("center=%v", p)
	}
}

func TestViewState_Camera(t *testing.T) {
	c := ViewState{Longitude: 5, Latitude: 6, Zoom: 7}.Camera()
	if c.Tile != (TileRef{Z: 7, X: 65, Y: 61}) {
		t.Fatalf("tile=%+v want 7/65/61", c.Tile)
	}
	if c.Zoom != 7 || c.Longitude != 5 {
		t.Fatalf("camera=%+v", c)
	}
}
