// Package viewstate keeps the basemap camera and the overlay camera in step.
package viewstate

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// ViewState is the camera of one map surface.
type ViewState struct {
	Longitude float64 `json:"longitude" doc:"Center longitude" example:"-83.0658"`
	Latitude  float64 `json:"latitude" doc:"Center latitude" example:"42.3514"`
	Zoom      float64 `json:"zoom" doc:"Zoom level" example:"12"`
	Pitch     float64 `json:"pitch" doc:"Pitch in degrees"`
	Bearing   float64 `json:"bearing" doc:"Bearing in degrees"`
}

// Center returns the camera center as a point.
func (v ViewState) Center() orb.Point {
	return orb.Point{v.Longitude, v.Latitude}
}

// CenterTile returns the tile under the camera center at the floored zoom.
func (v ViewState) CenterTile() maptile.Tile {
	z := v.Zoom
	if z < 0 {
		z = 0
	}
	if z > 22 {
		z = 22
	}
	return maptile.At(v.Center(), maptile.Zoom(uint32(z)))
}

// TileRef is the z/x/y address of a web mercator tile.
type TileRef struct {
	Z uint32 `json:"z" doc:"Zoom"`
	X uint32 `json:"x" doc:"Column"`
	Y uint32 `json:"y" doc:"Row"`
}

// Camera is a view together with the tile under its center.
type Camera struct {
	ViewState
	Tile TileRef `json:"tile" doc:"Tile under the camera center"`
}

// Camera returns v with its center tile resolved.
func (v ViewState) Camera() Camera {
	t := v.CenterTile()
	return Camera{ViewState: v, Tile: TileRef{Z: uint32(t.Z), X: t.X, Y: t.Y}}
}

// Field selects which camera fields a Bridge copies.
type Field uint8

const (
	FieldCenter Field = 1 << iota
	FieldZoom
	FieldPitch
	FieldBearing

	AllFields = FieldCenter | FieldZoom | FieldPitch | FieldBearing
)

// Merge copies the fields selected by mask from src onto dst.
func Merge(dst, src ViewState, mask Field) ViewState {
	if mask&FieldCenter != 0 {
		dst.Longitude = src.Longitude
		dst.Latitude = src.Latitude
	}
	if mask&FieldZoom != 0 {
		dst.Zoom = src.Zoom
	}
	if mask&FieldPitch != 0 {
		dst.Pitch = src.Pitch
	}
	if mask&FieldBearing != 0 {
		dst.Bearing = src.Bearing
	}
	return dst
}

// Surface owns the camera of one map widget. Interact models a user gesture
// and notifies subscribers; Jump is a programmatic move and never notifies.
type Surface struct {
	name string

	mu       sync.Mutex
	state    ViewState
	nextID   int
	handlers map[int]func(ViewState)
}

// NewSurface creates a surface starting at initial.
func NewSurface(name string, initial ViewState) *Surface {
	return &Surface{
		name:     name,
		state:    initial,
		handlers: make(map[int]func(ViewState)),
	}
}

// Name returns the surface name.
func (s *Surface) Name() string { return s.name }

// State returns a copy of the current camera.
func (s *Surface) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Jump moves the camera without raising a change notification.
func (s *Surface) Jump(v ViewState) {
	s.mu.Lock()
	s.state = v
	s.mu.Unlock()
}

// Interact moves the camera and synchronously notifies every subscriber.
// Handlers run outside the lock so they may read or jump this surface.
func (s *Surface) Interact(v ViewState) {
	s.mu.Lock()
	s.state = v
	handlers := make([]func(ViewState), 0, len(s.handlers))
	for id := 0; id < s.nextID; id++ {
		if h, ok := s.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(v)
	}
}

// OnChange registers fn for Interact notifications and returns a func that
// removes it.
func (s *Surface) OnChange(fn func(ViewState)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}
