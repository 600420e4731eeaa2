package core

import (
	"context"

	"github.com/signalsfoundry/hive-simulator/internal/logging"
	"github.com/signalsfoundry/hive-simulator/model"
)

// DefaultMoveCap is the number of successful moves after which an agent
// counts as finished.
const DefaultMoveCap = 10000

// RunStats summarises what happened during a run. Dead, Stranded and
// CapFinished partition the agents: each agent is counted in at most one
// of them, and once the run is over their sum equals the agent count.
type RunStats struct {
	Steps          int
	Moves          int
	Collisions     int
	Dead           int
	Stranded       int
	CapFinished    int
	DroppedEntries int
	StaleEdges     int
}

// EngineOption customises a SimulationEngine.
type EngineOption func(*SimulationEngine)

// WithRandomSource injects the uniform source used for every pick.
func WithRandomSource(rng RandomSource) EngineOption {
	return func(se *SimulationEngine) {
		if rng != nil {
			se.rng = rng
		}
	}
}

// WithMoveCap overrides DefaultMoveCap.
func WithMoveCap(moves int) EngineOption {
	return func(se *SimulationEngine) {
		if moves > 0 {
			se.moveCap = moves
		}
	}
}

// WithLogger attaches a logger for run-level (not per-step) messages.
func WithLogger(log logging.Logger) EngineOption {
	return func(se *SimulationEngine) {
		if log != nil {
			se.log = log
		}
	}
}

// SimulationEngine advances agents over a World until every agent is
// finished, stranded or dead. It mutates World and Agents in place and is
// not safe for concurrent use; independent runs need independent engines.
type SimulationEngine struct {
	World  *World
	Agents *Agents

	rng     RandomSource
	moveCap int
	log     logging.Logger

	events             []model.DestructionEvent
	stats              RunStats
	destroyedListeners []func(model.DestructionEvent)
}

// NewSimulationEngine builds an engine over w and agents using
// DefaultMoveCap and a randomly seeded source unless options say otherwise.
func NewSimulationEngine(w *World, agents *Agents, opts ...EngineOption) *SimulationEngine {
	se := &SimulationEngine{
		World:   w,
		Agents:  agents,
		moveCap: DefaultMoveCap,
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(se)
	}
	if se.rng == nil {
		se.rng = NewRandomSource(0)
	}
	se.events = make([]model.DestructionEvent, 0, agents.Total/2+1)
	return se
}

// RegisterDestructionListener registers fn to be called right after each
// node is destroyed.
func (se *SimulationEngine) RegisterDestructionListener(fn func(model.DestructionEvent)) {
	se.destroyedListeners = append(se.destroyedListeners, fn)
}

// MoveCap returns the configured move cap.
func (se *SimulationEngine) MoveCap() int { return se.moveCap }

// Events returns the destruction log so far, in collision order.
func (se *SimulationEngine) Events() []model.DestructionEvent { return se.events }

// Stats returns counters for the steps executed so far.
func (se *SimulationEngine) Stats() RunStats { return se.stats }

// Run steps until the termination counter reaches the agent count and
// returns the destruction events in the order they occurred.
func (se *SimulationEngine) Run() []model.DestructionEvent {
	ctx := context.Background()
	se.log.Debug(ctx, "simulation started",
		logging.Int("agents", se.Agents.Total),
		logging.Int("nodes", se.World.Len()),
		logging.Int("move_cap", se.moveCap),
	)
	for se.Step() {
	}
	se.log.Debug(ctx, "simulation finished",
		logging.Int("steps", se.stats.Steps),
		logging.Int("moves", se.stats.Moves),
		logging.Int("collisions", se.stats.Collisions),
		logging.Int("dead", se.stats.Dead),
		logging.Int("stranded", se.stats.Stranded),
		logging.Int("cap_finished", se.stats.CapFinished),
	)
	return se.events
}

// Step performs one iteration of the loop. It returns false once the run
// is over, without doing any work.
func (se *SimulationEngine) Step() bool {
	agents := se.Agents
	// An empty set with agents unaccounted for only happens on worlds with
	// asymmetric adjacency.
	if agents.Done() || agents.Active.Len() == 0 {
		return false
	}
	se.stats.Steps++

	pos, idx := agents.Active.PickRandom(se.rng)
	node := se.World.Node(idx)

	// Entries of agents killed while standing still point at their
	// destroyed node; they were counted at collision time.
	if node.IsDestroyed() || !node.IsOccupied() {
		agents.Active.Remove(pos)
		se.stats.DroppedEntries++
		return true
	}

	ant := node.Occupant
	if node.ActiveDegree == 0 || len(node.ValidNeighbors) == 0 {
		agents.Active.Remove(pos)
		if agents.Moves[ant] < se.moveCap {
			agents.FinishedOrDead++
			se.stats.Stranded++
		}
		return true
	}

	target := node.ValidNeighbors[se.rng.IntN(len(node.ValidNeighbors))]
	dest := se.World.Node(target)
	if dest.IsDestroyed() {
		// Stale edge left behind by a missing back-reference.
		node.Sever(target)
		se.stats.StaleEdges++
		return true
	}

	node.Occupant = model.NoAgent
	if !dest.IsOccupied() {
		dest.Occupant = ant
		agents.Active.Update(pos, target)
		agents.Moves[ant]++
		se.stats.Moves++
		if agents.Moves[ant] == se.moveCap {
			agents.FinishedOrDead++
			se.stats.CapFinished++
		}
		return true
	}

	se.collide(pos, ant, target)
	return true
}

func (se *SimulationEngine) collide(pos, mover, target int) {
	agents := se.Agents
	occupant := se.World.Node(target).Occupant

	// Agents already finished by the cap keep that outcome.
	if agents.Moves[occupant] < se.moveCap {
		agents.FinishedOrDead++
		se.stats.Dead++
	}
	if agents.Moves[mover] < se.moveCap {
		agents.FinishedOrDead++
		se.stats.Dead++
	}

	event := model.DestructionEvent{Node: target, AgentA: mover, AgentB: occupant}
	se.events = append(se.events, event)
	se.stats.Collisions++

	agents.Active.Remove(pos)
	se.World.Destroy(target)

	for _, fn := range se.destroyedListeners {
		fn(event)
	}
}

// Run simulates agents on w with the default move cap and returns the
// destruction events.
func Run(w *World, agents *Agents, rng RandomSource) []model.DestructionEvent {
	return NewSimulationEngine(w, agents, WithRandomSource(rng)).Run()
}
