package viewstate

import "sync"

// Bridge mirrors camera changes between a primary and a secondary surface.
// Each side pushes into the other with Jump, which does not notify, so a
// change never echoes back.
type Bridge struct {
	primary   *Surface
	secondary *Surface
	fields    Field

	mu     sync.Mutex
	unsubs []func()
}

// NewBridge returns an unattached bridge. A zero mask copies all fields.
func NewBridge(primary, secondary *Surface, fields Field) *Bridge {
	if fields == 0 {
		fields = AllFields
	}
	return &Bridge{primary: primary, secondary: secondary, fields: fields}
}

// Connect creates a bridge and subscribes it to both surfaces.
func Connect(primary, secondary *Surface, fields Field) *Bridge {
	b := NewBridge(primary, secondary, fields)
	b.mu.Lock()
	b.unsubs = append(b.unsubs,
		primary.OnChange(b.OnPrimaryChanged),
		secondary.OnChange(b.OnSecondaryChanged),
	)
	b.mu.Unlock()
	return b
}

// Fields returns the copied field mask.
func (b *Bridge) Fields() Field { return b.fields }

// OnPrimaryChanged pushes v into the secondary surface.
func (b *Bridge) OnPrimaryChanged(v ViewState) {
	b.secondary.Jump(Merge(b.secondary.State(), v, b.fields))
}

// OnSecondaryChanged pushes v into the primary surface.
func (b *Bridge) OnSecondaryChanged(v ViewState) {
	b.primary.Jump(Merge(b.primary.State(), v, b.fields))
}

// Close detaches the bridge from both surfaces. It is safe to call twice.
func (b *Bridge) Close() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}
