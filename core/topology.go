package core

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/signalsfoundry/hive-simulator/model"
)

// Summary describes the shape of the surviving world.
type Summary struct {
	LiveNodes        int
	Edges            int
	Components       int
	LargestComponent int
}

// Summarize builds an undirected view of the live nodes and counts its
// connected components. One-way edges count as connections; self loops
// are ignored.
func Summarize(w *World) Summary {
	g := simple.NewUndirectedGraph()
	for i := range w.Nodes {
		if !w.Nodes[i].IsDestroyed() {
			g.AddNode(simple.Node(int64(i)))
		}
	}

	for i := range w.Nodes {
		node := &w.Nodes[i]
		if node.IsDestroyed() {
			continue
		}
		for _, neighbor := range node.Neighbors {
			if neighbor == model.NoNode || neighbor == i || w.Nodes[neighbor].IsDestroyed() {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64(neighbor))))
		}
	}

	components := topo.ConnectedComponents(g)
	s := Summary{
		LiveNodes:  g.Nodes().Len(),
		Edges:      g.Edges().Len(),
		Components: len(components),
	}
	for _, c := range components {
		if len(c) > s.LargestComponent {
			s.LargestComponent = len(c)
		}
	}
	return s
}
