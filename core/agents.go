package core

import (
	"errors"
	"fmt"
)

var (
	ErrCapacityExceeded  = errors.New("agent count exceeds available nodes")
	ErrInvalidAgentCount = errors.New("agent count must not be negative")
)

// CapacityError is returned by PlaceAgents when there are fewer live
// nodes than requested agents.
type CapacityError struct {
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("number of ants (%d) exceeds number of available hives (%d)", e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// Agents is the per-run agent registry: move counters, the active set
// and the termination counter.
type Agents struct {
	Active *ActiveSet

	// Moves holds the successful relocation count per agent id.
	Moves []int

	// Total is the number of agents placed.
	Total int

	// FinishedOrDead counts agents that reached the move cap, were
	// stranded, or died. The run ends when it reaches Total.
	FinishedOrDead int
}

// NewAgents builds a registry for agents 0..len(positions)-1, where
// positions[i] is the node agent i starts on. It does not touch the world.
func NewAgents(positions []int) *Agents {
	return &Agents{
		Active: NewActiveSet(positions),
		Moves:  make([]int, len(positions)),
		Total:  len(positions),
	}
}

// Done reports whether every agent has been accounted for.
func (a *Agents) Done() bool { return a.FinishedOrDead >= a.Total }

// PlaceAgents puts count agents on distinct, randomly chosen live nodes.
// Agent ids follow the shuffled order.
func PlaceAgents(w *World, count int, rng RandomSource) (*Agents, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAgentCount, count)
	}

	candidates := make([]int, 0, len(w.Nodes))
	for i := range w.Nodes {
		if !w.Nodes[i].IsDestroyed() {
			candidates = append(candidates, i)
		}
	}
	if count > len(candidates) {
		return nil, &CapacityError{Requested: count, Available: len(candidates)}
	}

	// Partial Fisher-Yates: only the first count slots need to be drawn.
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	placed := candidates[:count]

	for id, idx := range placed {
		w.Nodes[idx].Occupant = id
	}
	return NewAgents(placed), nil
}
