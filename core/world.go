package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/hive-simulator/model"
)

// Errors returned while building a World.
var (
	// ErrDuplicateNode is returned when a name is declared twice.
	ErrDuplicateNode = errors.New("duplicate node declaration")
	// ErrNodeIndex is returned by Connect for an index outside the World.
	ErrNodeIndex = errors.New("node index out of range")
)

// World is the hive graph: a fixed-size, stably indexed node slice plus
// the read-only name <-> index mapping established at load time.
type World struct {
	Nodes []model.Node

	names []string
	index map[string]int
}

// NewWorld creates an unconnected world with one live node per name, in
// the given order.
func NewWorld(names []string) (*World, error) {
	w := &World{
		Nodes: make([]model.Node, 0, len(names)),
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, name := range names {
		if _, err := w.AddNode(name); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// AddNode appends a node and returns its index.
func (w *World) AddNode(name string) (int, error) {
	if _, exists := w.index[name]; exists {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	idx := len(w.Nodes)
	w.Nodes = append(w.Nodes, model.NewNode())
	w.names = append(w.names, name)
	w.index[name] = idx
	return idx, nil
}

// Len returns the number of nodes, destroyed ones included.
func (w *World) Len() int { return len(w.Nodes) }

// Node returns the node at index i for in-place access.
func (w *World) Node(i int) *model.Node { return &w.Nodes[i] }

// Name returns the declared name of node i.
func (w *World) Name(i int) string { return w.names[i] }

// Index resolves a node name.
func (w *World) Index(name string) (int, bool) {
	i, ok := w.index[name]
	return i, ok
}

// Connect records a one-way edge from -> to in slot dir. Symmetric
// adjacency requires the caller to connect both endpoints.
func (w *World) Connect(from int, dir model.Direction, to int) error {
	if from < 0 || from >= len(w.Nodes) || to < 0 || to >= len(w.Nodes) {
		return fmt.Errorf("%w: connect %d -> %d", ErrNodeIndex, from, to)
	}
	w.Nodes[from].Link(dir, to)
	return nil
}

// Destroy removes node i from the world: its occupant is cleared, it is
// marked destroyed, and every former neighbor holding a back-reference to
// it drops that edge. A neighbor that never listed i keeps its stale slot.
func (w *World) Destroy(i int) {
	node := &w.Nodes[i]
	if node.IsDestroyed() {
		return
	}
	former := node.MarkDestroyed()
	for d, neighbor := range former {
		if neighbor == model.NoNode || neighbor == i || seenBefore(former[:d], neighbor) {
			continue
		}
		w.Nodes[neighbor].Sever(i)
	}
}

func seenBefore(slots []int, v int) bool {
	for _, s := range slots {
		if s == v {
			return true
		}
	}
	return false
}

// LiveNodes counts nodes that have not been destroyed.
func (w *World) LiveNodes() int {
	live := 0
	for i := range w.Nodes {
		if !w.Nodes[i].IsDestroyed() {
			live++
		}
	}
	return live
}

// Clone returns a deep copy sharing only the immutable name mapping.
func (w *World) Clone() *World {
	c := &World{
		Nodes: make([]model.Node, len(w.Nodes)),
		names: w.names,
		index: w.index,
	}
	for i := range w.Nodes {
		c.Nodes[i] = w.Nodes[i].Clone()
	}
	return c
}

// AsymmetricEdge is a declared edge whose target does not point back.
type AsymmetricEdge struct {
	From      int
	Direction model.Direction
	To        int
}

// CheckSymmetry lists the live edges that lack a back-reference. Destroy
// cannot sever such edges, so they go stale once their target is destroyed.
func CheckSymmetry(w *World) []AsymmetricEdge {
	var out []AsymmetricEdge
	for i := range w.Nodes {
		node := &w.Nodes[i]
		if node.IsDestroyed() {
			continue
		}
		for d, target := range node.Neighbors {
			if target == model.NoNode {
				continue
			}
			if !containsSlot(w.Nodes[target].Neighbors, i) {
				out = append(out, AsymmetricEdge{From: i, Direction: model.Direction(d), To: target})
			}
		}
	}
	return out
}

func containsSlot(slots [model.NumDirections]int, v int) bool {
	for _, s := range slots {
		if s == v {
			return true
		}
	}
	return false
}
