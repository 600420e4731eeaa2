package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/signalsfoundry/hive-simulator/model"
)

func TestWriteWorldOmitsDestroyedNodes(t *testing.T) {
	w := mustLoad(t, "A east=B\nB west=A east=C\nC west=B\n")
	w.Destroy(mustIndex(t, w, "C"))

	var buf bytes.Buffer
	if err := WriteWorld(&buf, w); err != nil {
		t.Fatalf("WriteWorld error: %v", err)
	}
	want := "A east=B\nB west=A\n"
	if buf.String() != want {
		t.Fatalf("WriteWorld = %q, want %q", buf.String(), want)
	}
}

func TestWriteEvents(t *testing.T) {
	w := mustLoad(t, "A east=B\nB west=A\n")
	events := []model.DestructionEvent{{Node: 1, AgentA: 0, AgentB: 1}}

	var buf bytes.Buffer
	if err := WriteEvents(&buf, w, events); err != nil {
		t.Fatalf("WriteEvents error: %v", err)
	}
	if got, want := buf.String(), "B has been destroyed by ant 0 and ant 1!\n"; got != want {
		t.Fatalf("WriteEvents = %q, want %q", got, want)
	}
}

func TestWriteWorldRoundTripAfterSimulation(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		w := mustLoad(t, gridMap(6, 5))
		agents, err := PlaceAgents(w, 15, NewRandomSource(seed))
		if err != nil {
			t.Fatalf("PlaceAgents error: %v", err)
		}
		NewSimulationEngine(w, agents, WithRandomSource(NewRandomSource(seed)), WithMoveCap(100)).Run()

		var buf bytes.Buffer
		if err := WriteWorld(&buf, w); err != nil {
			t.Fatalf("WriteWorld error: %v", err)
		}
		reloaded, err := LoadWorld(strings.NewReader(buf.String()))
		if err != nil {
			t.Fatalf("seed %d: reload error: %v", seed, err)
		}

		if reloaded.Len() != w.LiveNodes() {
			t.Fatalf("seed %d: reloaded %d nodes, want %d", seed, reloaded.Len(), w.LiveNodes())
		}
		for i := range w.Nodes {
			orig := w.Node(i)
			if orig.IsDestroyed() {
				if _, ok := reloaded.Index(w.Name(i)); ok {
					t.Fatalf("seed %d: destroyed node %s reappeared", seed, w.Name(i))
				}
				continue
			}
			j, ok := reloaded.Index(w.Name(i))
			if !ok {
				t.Fatalf("seed %d: node %s missing after reload", seed, w.Name(i))
			}
			got := reloaded.Node(j)
			if got.ActiveDegree != orig.ActiveDegree {
				t.Fatalf("seed %d: %s degree %d, want %d", seed, w.Name(i), got.ActiveDegree, orig.ActiveDegree)
			}
			for d := range orig.Neighbors {
				wantName, gotName := "", ""
				if orig.Neighbors[d] != model.NoNode {
					wantName = w.Name(orig.Neighbors[d])
				}
				if got.Neighbors[d] != model.NoNode {
					gotName = reloaded.Name(got.Neighbors[d])
				}
				if wantName != gotName {
					t.Fatalf("seed %d: %s %s = %q, want %q", seed, w.Name(i), model.Direction(d), gotName, wantName)
				}
			}
		}
	}
}
