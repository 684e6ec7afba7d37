package render

import (
	"fmt"
	"sync"
)

// Publication is one replace-all publish.
type Publication struct {
	Seq         uint64
	Fingerprint uint64
	Layers      []LayerDescriptor
}

// FormatFingerprint renders a parameter fingerprint as fixed-width hex so
// it survives JSON clients that read numbers as doubles.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// Overlay is the in-process stand-in for the overlay renderer: it keeps the
// active layer set and forwards every publish to a listener.
type Overlay struct {
	mu          sync.Mutex
	seq         uint64
	fingerprint uint64
	layers      []LayerDescriptor
	listener    func(Publication)
}

// NewOverlay returns an overlay with no layers. listener may be nil.
func NewOverlay(listener func(Publication)) *Overlay {
	return &Overlay{listener: listener}
}

// SetLayers replaces the active set.
func (o *Overlay) SetLayers(layers []LayerDescriptor, fingerprint uint64) {
	cp := make([]LayerDescriptor, len(layers))
	copy(cp, layers)

	o.mu.Lock()
	o.seq++
	o.layers = cp
	o.fingerprint = fingerprint
	pub := Publication{Seq: o.seq, Fingerprint: fingerprint, Layers: cp}
	listener := o.listener
	o.mu.Unlock()

	if listener != nil {
		listener(pub)
	}
}

// Current returns the active publication.
func (o *Overlay) Current() Publication {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := make([]LayerDescriptor, len(o.layers))
	copy(cp, o.layers)
	return Publication{Seq: o.seq, Fingerprint: o.fingerprint, Layers: cp}
}
