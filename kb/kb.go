package kb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/hive-simulator/core"
)

// EventType indicates what kind of change happened in the library.
type EventType int

const (
	EventMapLoaded EventType = iota
	EventMapEvicted
)

func (t EventType) String() string {
	switch t {
	case EventMapLoaded:
		return "loaded"
	case EventMapEvicted:
		return "evicted"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers when a map enters or leaves the library.
type Event struct {
	Type  EventType
	Path  string
	Nodes int
}

// Loader parses the map stored at path.
type Loader func(path string) (*core.World, error)

// MapLibrary is an in-memory, thread-safe cache of parsed worlds keyed by
// path. Cached worlds are pristine templates and are never simulated on
// directly; callers take a Fresh copy per run.
type MapLibrary struct {
	mu sync.RWMutex

	load Loader
	maps map[string]*core.World

	nextSub int
	subs    map[int]func(Event)
}

// NewMapLibrary constructs an empty library. A nil loader reads map files
// from disk.
func NewMapLibrary(load Loader) *MapLibrary {
	if load == nil {
		load = core.LoadWorldFile
	}
	return &MapLibrary{
		load: load,
		maps: make(map[string]*core.World),
		subs: make(map[int]func(Event)),
	}
}

// Load returns the cached template for path, parsing it on first use.
func (l *MapLibrary) Load(path string) (*core.World, error) {
	if w := l.Get(path); w != nil {
		return w, nil
	}

	// Parse outside the lock; concurrent first loads of the same path race
	// and the first insert wins.
	w, err := l.load(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if existing, ok := l.maps[path]; ok {
		l.mu.Unlock()
		return existing, nil
	}
	l.maps[path] = w
	subs := l.snapshotSubsLocked()
	l.mu.Unlock()

	l.notify(subs, Event{Type: EventMapLoaded, Path: path, Nodes: w.Len()})
	return w, nil
}

// Fresh returns an independent copy of the map at path, ready to be
// populated and simulated.
func (l *MapLibrary) Fresh(path string) (*core.World, error) {
	w, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	return w.Clone(), nil
}

// Get returns the cached template for path, or nil if it was never loaded.
func (l *MapLibrary) Get(path string) *core.World {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maps[path]
}

// List returns the cached paths in lexical order.
func (l *MapLibrary) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := make([]string, 0, len(l.maps))
	for path := range l.maps {
		res = append(res, path)
	}
	sort.Strings(res)
	return res
}

// Evict drops path from the cache. It reports whether anything was removed.
func (l *MapLibrary) Evict(path string) bool {
	l.mu.Lock()
	w, ok := l.maps[path]
	if !ok {
		l.mu.Unlock()
		return false
	}
	delete(l.maps, path)
	subs := l.snapshotSubsLocked()
	l.mu.Unlock()

	l.notify(subs, Event{Type: EventMapEvicted, Path: path, Nodes: w.Len()})
	return true
}

// Subscribe registers a callback for library events. It returns an
// unsubscribe function.
func (l *MapLibrary) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

func (l *MapLibrary) snapshotSubsLocked() []func(Event) {
	ids := make([]int, 0, len(l.subs))
	for id := range l.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, l.subs[id])
	}
	return subs
}

// notify runs outside the lock so subscribers may call back into the library.
func (l *MapLibrary) notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
