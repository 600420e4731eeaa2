package core

import (
	"bufio"
	"fmt"
	"io"

	"github.com/signalsfoundry/hive-simulator/model"
)

// WriteWorld writes every surviving node in index order using the same
// grammar LoadWorld reads. Directions leading to destroyed or missing
// neighbors are omitted.
func WriteWorld(out io.Writer, w *World) error {
	bw := bufio.NewWriter(out)
	for i := range w.Nodes {
		node := &w.Nodes[i]
		if node.IsDestroyed() {
			continue
		}
		bw.WriteString(w.Name(i))
		for d, neighbor := range node.Neighbors {
			if neighbor == model.NoNode || w.Nodes[neighbor].IsDestroyed() {
				continue
			}
			fmt.Fprintf(bw, " %s=%s", model.Direction(d), w.Name(neighbor))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// FormatDestructionEvent renders one event as a human-readable line
// without the trailing newline.
func FormatDestructionEvent(w *World, ev model.DestructionEvent) string {
	return fmt.Sprintf("%s has been destroyed by ant %d and ant %d!", w.Name(ev.Node), ev.AgentA, ev.AgentB)
}

// WriteEvents writes one line per event, in order.
func WriteEvents(out io.Writer, w *World, events []model.DestructionEvent) error {
	bw := bufio.NewWriter(out)
	for _, ev := range events {
		bw.WriteString(FormatDestructionEvent(w, ev))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
