package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/signalsfoundry/hive-simulator/model"
)

// scriptedSource replays fixed draws, reducing each modulo n.
type scriptedSource struct {
	t     *testing.T
	draws []int
	next  int
}

func (s *scriptedSource) IntN(n int) int {
	if s.next >= len(s.draws) {
		s.t.Fatalf("scriptedSource exhausted after %d draws", len(s.draws))
	}
	v := s.draws[s.next] % n
	s.next++
	return v
}

func mustLoad(t *testing.T, text string) *World {
	t.Helper()
	w, err := LoadWorld(strings.NewReader(text))
	if err != nil {
		t.Fatalf("LoadWorld error: %v", err)
	}
	return w
}

func mustIndex(t *testing.T, w *World, name string) int {
	t.Helper()
	i, ok := w.Index(name)
	if !ok {
		t.Fatalf("node %q not found", name)
	}
	return i
}

// gridMap renders a width x height grid with symmetric 4-neighbor edges.
func gridMap(width, height int) string {
	name := func(x, y int) string { return fmt.Sprintf("N%d_%d", x, y) }
	var b strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b.WriteString(name(x, y))
			if y+1 < height {
				fmt.Fprintf(&b, " north=%s", name(x, y+1))
			}
			if x > 0 {
				fmt.Fprintf(&b, " west=%s", name(x-1, y))
			}
			if y > 0 {
				fmt.Fprintf(&b, " south=%s", name(x, y-1))
			}
			if x+1 < width {
				fmt.Fprintf(&b, " east=%s", name(x+1, y))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// checkAdjacency asserts the degree/neighbor-list invariants on every
// live node.
func checkAdjacency(t *testing.T, w *World) {
	t.Helper()
	for i := range w.Nodes {
		n := &w.Nodes[i]
		if n.IsDestroyed() {
			if n.IsOccupied() || len(n.ValidNeighbors) != 0 {
				t.Fatalf("destroyed node %s not terminal: %+v", w.Name(i), *n)
			}
			continue
		}
		slots := 0
		for _, v := range n.Neighbors {
			if v != model.NoNode {
				slots++
			}
		}
		if n.ActiveDegree != slots || len(n.ValidNeighbors) != n.ActiveDegree {
			t.Fatalf("node %s degree=%d slots=%d valid=%v", w.Name(i), n.ActiveDegree, slots, n.ValidNeighbors)
		}
		for _, v := range n.ValidNeighbors {
			if w.Nodes[v].IsDestroyed() {
				t.Fatalf("node %s lists destroyed neighbor %s", w.Name(i), w.Name(v))
			}
			if !containsSlot(n.Neighbors, v) {
				t.Fatalf("node %s valid entry %d missing from slots %v", w.Name(i), v, n.Neighbors)
			}
		}
	}
}
