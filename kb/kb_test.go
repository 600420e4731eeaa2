package kb

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/signalsfoundry/hive-simulator/core"
)

const threeNodeMap = "A east=B\nB west=A east=C\nC west=B\n"

func stringLoader(t *testing.T, maps map[string]string, calls *atomic.Int32) Loader {
	t.Helper()
	return func(path string) (*core.World, error) {
		if calls != nil {
			calls.Add(1)
		}
		src, ok := maps[path]
		if !ok {
			return nil, errors.New("no such map")
		}
		return core.LoadWorld(strings.NewReader(src))
	}
}

func TestLoadCachesWorld(t *testing.T) {
	var calls atomic.Int32
	lib := NewMapLibrary(stringLoader(t, map[string]string{"m.txt": threeNodeMap}, &calls))

	first, err := lib.Load("m.txt")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	second, err := lib.Load("m.txt")
	if err != nil {
		t.Fatalf("second Load error: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached world to be reused")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
	if lib.Get("m.txt") != first {
		t.Fatalf("Get returned a different world")
	}
}

func TestLoadPropagatesError(t *testing.T) {
	lib := NewMapLibrary(stringLoader(t, nil, nil))
	if _, err := lib.Load("missing.txt"); err == nil {
		t.Fatalf("expected error for unknown map")
	}
	if got := len(lib.List()); got != 0 {
		t.Fatalf("failed load was cached: %d entries", got)
	}
}

func TestFreshIsIndependentOfTemplate(t *testing.T) {
	lib := NewMapLibrary(stringLoader(t, map[string]string{"m.txt": threeNodeMap}, nil))

	fresh, err := lib.Fresh("m.txt")
	if err != nil {
		t.Fatalf("Fresh error: %v", err)
	}
	b, _ := fresh.Index("B")
	fresh.Destroy(b)

	template := lib.Get("m.txt")
	if template.LiveNodes() != 3 {
		t.Fatalf("template LiveNodes = %d after destroying a fresh copy, want 3", template.LiveNodes())
	}
	if fresh.LiveNodes() != 2 {
		t.Fatalf("fresh LiveNodes = %d, want 2", fresh.LiveNodes())
	}
}

func TestListAndEvict(t *testing.T) {
	lib := NewMapLibrary(stringLoader(t, map[string]string{"b.txt": threeNodeMap, "a.txt": "X\n"}, nil))
	for _, p := range []string{"b.txt", "a.txt"} {
		if _, err := lib.Load(p); err != nil {
			t.Fatalf("Load(%s) error: %v", p, err)
		}
	}

	got := lib.List()
	if len(got) != 2 || got[0] != "a.txt" || got[1] != "b.txt" {
		t.Fatalf("List = %v, want [a.txt b.txt]", got)
	}
	if !lib.Evict("a.txt") {
		t.Fatalf("Evict(a.txt) = false, want true")
	}
	if lib.Evict("a.txt") {
		t.Fatalf("second Evict(a.txt) = true, want false")
	}
	if lib.Get("a.txt") != nil {
		t.Fatalf("evicted map still cached")
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	lib := NewMapLibrary(stringLoader(t, map[string]string{"m.txt": threeNodeMap}, nil))

	var got []Event
	unsubscribe := lib.Subscribe(func(e Event) { got = append(got, e) })

	if _, err := lib.Load("m.txt"); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if _, err := lib.Load("m.txt"); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	lib.Evict("m.txt")
	unsubscribe()
	if _, err := lib.Load("m.txt"); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(got), got)
	}
	if got[0].Type != EventMapLoaded || got[0].Path != "m.txt" || got[0].Nodes != 3 {
		t.Fatalf("unexpected load event: %+v", got[0])
	}
	if got[1].Type != EventMapEvicted {
		t.Fatalf("got event type %v, want evicted", got[1].Type)
	}
}

func TestUnsubscribeKeepsOtherSubscribers(t *testing.T) {
	lib := NewMapLibrary(stringLoader(t, map[string]string{"m.txt": threeNodeMap}, nil))

	var first, second int
	unsubFirst := lib.Subscribe(func(Event) { first++ })
	lib.Subscribe(func(Event) { second++ })
	unsubFirst()
	unsubFirst()

	if _, err := lib.Load("m.txt"); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if first != 0 || second != 1 {
		t.Fatalf("first=%d second=%d, want 0 and 1", first, second)
	}
}

func TestConcurrentAccess(t *testing.T) {
	var calls atomic.Int32
	lib := NewMapLibrary(stringLoader(t, map[string]string{"m.txt": threeNodeMap}, &calls))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w, err := lib.Fresh("m.txt")
			if err != nil {
				t.Errorf("Fresh error: %v", err)
				return
			}
			w.Destroy(0)
		}()
		go func() {
			defer wg.Done()
			_ = lib.List()
			_ = lib.Get("m.txt")
		}()
	}
	wg.Wait()

	if lib.Get("m.txt").LiveNodes() != 3 {
		t.Fatalf("template was mutated by concurrent runs")
	}
}
