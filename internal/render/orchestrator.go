package render

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/logger"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/params"
)

// Publisher replaces the whole active layer set of an overlay renderer.
// fingerprint identifies the parameters the layers were bound from.
// A Publisher must not call back into Render.
type Publisher interface {
	SetLayers(layers []LayerDescriptor, fingerprint uint64)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(layers []LayerDescriptor, fingerprint uint64)

func (f PublisherFunc) SetLayers(layers []LayerDescriptor, fingerprint uint64) {
	f(layers, fingerprint)
}

// Snapshotter is the read side of a params.Store.
type Snapshotter interface {
	Snapshot() params.Snapshot
}

// Orchestrator rebuilds and republishes layers from the current parameters.
type Orchestrator struct {
	name   string
	store  Snapshotter
	layers []ThemeLayer
	pub    Publisher
	log    *zerolog.Logger

	// renderMu orders snapshot and publish so a slower Render never
	// overwrites a newer one.
	renderMu sync.Mutex

	mu           sync.Mutex
	lastRevision uint64
}

// NewOrchestrator returns an orchestrator for the given layer definitions.
// Layers are published in the order given here.
func NewOrchestrator(name string, store Snapshotter, layers []ThemeLayer, pub Publisher, log *zerolog.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	cp := make([]ThemeLayer, len(layers))
	copy(cp, layers)
	return &Orchestrator{name: name, store: store, layers: cp, pub: pub, log: log}
}

// Build returns the descriptors for snap. It has no side effects.
func (o *Orchestrator) Build(snap params.Snapshot) []LayerDescriptor {
	out := make([]LayerDescriptor, 0, len(o.layers))
	for _, l := range o.layers {
		if l.Toggle != "" && !snap.Toggle(l.Toggle) {
			continue
		}
		out = append(out, LayerDescriptor{
			ID:      l.ID,
			Source:  l.Source.Bind(snap.Value),
			Visible: true,
			Style:   l.Style,
			table:   l.Table,
		})
	}
	return out
}

// Render publishes the layer set for the current parameters in one call.
// Repeated calls fully supersede each other; concurrent calls publish in
// the order their snapshots were taken.
func (o *Orchestrator) Render() {
	o.renderMu.Lock()
	defer o.renderMu.Unlock()

	snap := o.store.Snapshot()
	if snap.Revision < o.LastRevision() {
		o.log.Debug().Uint64("revision", snap.Revision).Msg("stale snapshot dropped")
		return
	}
	layers := o.Build(snap)

	for _, l := range layers {
		if missing := l.Source.Missing(); len(missing) > 0 {
			o.log.Debug().Str("layer", l.ID).Strs("missing", missing).Msg("layer has unbound parameters")
		}
	}

	o.pub.SetLayers(layers, snap.Fingerprint)
	metrics.ObserveRender(o.name, len(layers))

	o.mu.Lock()
	o.lastRevision = snap.Revision
	o.mu.Unlock()

	o.log.Debug().
		Uint64("revision", snap.Revision).
		Str("fingerprint", FormatFingerprint(snap.Fingerprint)).
		Int("layers", len(layers)).
		Msg("layers published")
}

// LastRevision is the store revision of the most recent Render.
func (o *Orchestrator) LastRevision() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRevision
}

// Layers returns the static layer definitions.
func (o *Orchestrator) Layers() []ThemeLayer {
	cp := make([]ThemeLayer, len(o.layers))
	copy(cp, o.layers)
	return cp
}
