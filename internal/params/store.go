// Package params holds the selected query parameters and layer toggles of one
// map session.
package params

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Kind tells a subscriber which half of the store changed.
type Kind string

const (
	KindParam  Kind = "param"
	KindToggle Kind = "toggle"
)

// Change describes one Set or SetToggle call.
type Change struct {
	Kind     Kind
	Name     string
	Value    any
	Snapshot Snapshot
}

// Snapshot is an immutable copy of the store at one revision.
type Snapshot struct {
	Revision    uint64
	Fingerprint uint64
	values      map[string]any
	toggles     map[string]bool
}

// Value returns a parameter value.
func (s Snapshot) Value(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Toggle returns a toggle; unknown toggles are off.
func (s Snapshot) Toggle(name string) bool {
	return s.toggles[name]
}

// Values returns a copy of all parameters.
func (s Snapshot) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Toggles returns a copy of all toggles.
func (s Snapshot) Toggles() map[string]bool {
	out := make(map[string]bool, len(s.toggles))
	for k, v := range s.toggles {
		out[k] = v
	}
	return out
}

// Bind returns the values for names, skipping names that are not set.
func (s Snapshot) Bind(names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, n := range names {
		if v, ok := s.values[n]; ok {
			out[n] = v
		}
	}
	return out
}

// Store maps parameter names to scalar values plus named boolean toggles.
// Values are not validated; they only ever travel as bound query parameters.
type Store struct {
	mu       sync.Mutex
	values   map[string]any
	toggles  map[string]bool
	revision uint64
	nextID   int
	subs     map[int]func(Change)
}

// New returns an empty store.
func New() *Store {
	return &Store{
		values:  make(map[string]any),
		toggles: make(map[string]bool),
		subs:    make(map[int]func(Change)),
	}
}

// Set replaces the value of name and notifies subscribers once.
func (s *Store) Set(name string, value any) {
	s.mu.Lock()
	s.values[name] = value
	s.notifyLocked(Change{Kind: KindParam, Name: name, Value: value})
}

// SetToggle replaces a toggle and notifies subscribers once.
func (s *Store) SetToggle(name string, on bool) {
	s.mu.Lock()
	s.toggles[name] = on
	s.notifyLocked(Change{Kind: KindToggle, Name: name, Value: on})
}

// Seed sets initial values and toggles without notifying anyone.
func (s *Store) Seed(values map[string]any, toggles map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	for k, v := range toggles {
		s.toggles[k] = v
	}
	s.revision++
}

// notifyLocked bumps the revision, releases the lock and runs subscribers
// synchronously in registration order.
func (s *Store) notifyLocked(c Change) {
	s.revision++
	c.Snapshot = s.snapshotLocked()
	subs := make([]func(Change), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}

// Get returns the current value of name.
func (s *Store) Get(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Toggle returns the current toggle value.
func (s *Store) Toggle(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggles[name]
}

// Revision returns the number of mutations applied so far.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Snapshot returns an immutable copy of the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Revision: s.revision,
		values:   make(map[string]any, len(s.values)),
		toggles:  make(map[string]bool, len(s.toggles)),
	}
	for k, v := range s.values {
		snap.values[k] = v
	}
	for k, v := range s.toggles {
		snap.toggles[k] = v
	}
	snap.Fingerprint = Fingerprint(snap.values, snap.toggles)
	return snap
}

// Subscribe registers fn for every change and returns its remover.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Fingerprint hashes a canonical encoding of values and toggles. Equal
// contents give equal fingerprints regardless of insertion order.
func Fingerprint(values map[string]any, toggles map[string]bool) uint64 {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "p:%s=%T:%v;", k, values[k], values[k])
	}

	names := make([]string, 0, len(toggles))
	for k := range toggles {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&b, "t:%s=%t;", k, toggles[k])
	}
	return xxhash.Sum64String(b.String())
}
