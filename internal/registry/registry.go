// Package registry holds the pending head declarations ("entries") of an
// application in registration order.
//
// Every entry gets a monotonic id that is never reused. The registry only
// indexes entries; the code that registered an entry owns it through the
// returned Handle and disposes of it with Handle.Remove. Watchers receive an
// EntryEvent for every mutation, which is how render passes get triggered.
package registry

import (
	"sync"
	"time"

	"github.com/conneroisu/templhead/internal/tags"
	"github.com/conneroisu/templhead/internal/value"
)

// Options are per-entry settings.
type Options struct {
	// Raw disables sanitisation for the entry's tags.
	Raw bool
}

// Entry is one registered declaration.
type Entry struct {
	ID      int
	Input   tags.Input
	Options Options
	// Resolved is set once ResolvedInput holds the plain snapshot for the
	// current render pass.
	Resolved      bool
	ResolvedInput tags.Input
}

// Dynamic reports whether the entry's input holds deferred values that may
// change between render passes.
func (e *Entry) Dynamic() bool {
	return value.IsDynamic(map[string]any(e.Input))
}

// Resolve computes ResolvedInput from Input.
func (e *Entry) Resolve() {
	e.ResolvedInput = tags.Input(value.ResolveInput(e.Input))
	e.Resolved = true
}

// EntryEvent represents a change in the registry.
type EntryEvent struct {
	Type      EventType
	EntryID   int
	Timestamp time.Time
}

// EventType represents the type of entry event.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Registry manages all registered entries.
type Registry struct {
	entries  map[int]*Entry
	order    []int
	nextID   int
	mutex    sync.RWMutex
	watchers []chan EntryEvent
}

// Handle is the registrant's reference to its entry.
type Handle struct {
	id       int
	registry *Registry
}

// NewRegistry creates a new entry registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[int]*Entry),
		order:    make([]int, 0),
		watchers: make([]chan EntryEvent, 0),
	}
}

// Register appends an unresolved entry and returns its handle.
func (r *Registry) Register(input tags.Input, opts Options) *Handle {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextID++
	id := r.nextID
	r.entries[id] = &Entry{ID: id, Input: input, Options: opts}
	r.order = append(r.order, id)

	r.notify(EventTypeAdded, id)

	return &Handle{id: id, registry: r}
}

// Update replaces the input of an entry, keeping its id and position. It
// reports whether the entry exists.
func (r *Registry) Update(id int, input tags.Input) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return false
	}
	entry.Input = input
	entry.Resolved = false
	entry.ResolvedInput = nil

	r.notify(EventTypeUpdated, id)

	return true
}

// Remove removes an entry. Removing an unknown id is a no-op.
func (r *Registry) Remove(id int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.entries[id]; !exists {
		return
	}
	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.notify(EventTypeRemoved, id)
}

// Get returns a copy of an entry.
func (r *Registry) Get(id int) (Entry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return Entry{}, false
	}
	return *entry, true
}

// Snapshot returns copies of all entries in registration order. The copies
// are unresolved; a render pass resolves them without touching the
// registry.
func (r *Registry) Snapshot() []Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		e := *r.entries[id]
		e.Resolved = false
		e.ResolvedInput = nil
		out = append(out, e)
	}
	return out
}

// Count returns the number of registered entries.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.order)
}

// Watch returns a channel that receives entry events.
func (r *Registry) Watch() <-chan EntryEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan EntryEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *Registry) UnWatch(ch <-chan EntryEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// notify must be called with the mutex held.
func (r *Registry) notify(typ EventType, id int) {
	event := EntryEvent{Type: typ, EntryID: id, Timestamp: time.Now()}
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// ID returns the entry id.
func (h *Handle) ID() int {
	return h.id
}

// Update replaces the entry's declaration.
func (h *Handle) Update(input tags.Input) {
	h.registry.Update(h.id, input)
}

// Remove disposes of the entry. Later renders no longer include its tags.
func (h *Handle) Remove() {
	h.registry.Remove(h.id)
}
