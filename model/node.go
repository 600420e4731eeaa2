package model

import "strings"

// Direction is one of the four compass slots a hive can connect through.
type Direction int

const (
	North Direction = iota
	West
	South
	East
)

// NumDirections is the fixed number of neighbor slots per node.
const NumDirections = 4

const (
	// NoNode marks an empty neighbor slot.
	NoNode = -1
	// NoAgent marks an unoccupied node.
	NoAgent = -1
	// Destroyed is the ActiveDegree sentinel of a destroyed node.
	Destroyed = -1
)

var directionNames = [NumDirections]string{"north", "west", "south", "east"}

// Directions lists all directions in slot order.
var Directions = [NumDirections]Direction{North, West, South, East}

func (d Direction) String() string {
	if d < 0 || int(d) >= NumDirections {
		return "unknown"
	}
	return directionNames[d]
}

// ParseDirection maps a lower-case direction token to its Direction.
// Unknown tokens report ok == false.
func ParseDirection(s string) (Direction, bool) {
	switch strings.TrimSpace(s) {
	case "north":
		return North, true
	case "west":
		return West, true
	case "south":
		return South, true
	case "east":
		return East, true
	default:
		return 0, false
	}
}

// Node is a single hive. Adjacency is expressed as indices into the
// owning world's node slice, never as pointers.
type Node struct {
	// ActiveDegree is the number of non-empty slots in Neighbors, or
	// Destroyed once the node has been removed from the world.
	ActiveDegree int

	// Neighbors holds one node index (or NoNode) per Direction.
	Neighbors [NumDirections]int

	// ValidNeighbors caches the non-empty entries of Neighbors so a
	// random move never has to reroll on an empty slot.
	ValidNeighbors []int

	// Occupant is the id of the agent standing on the node, or NoAgent.
	Occupant int
}

// NewNode returns a live, unconnected, unoccupied node.
func NewNode() Node {
	return Node{
		Neighbors: [NumDirections]int{NoNode, NoNode, NoNode, NoNode},
		Occupant:  NoAgent,
	}
}

// IsDestroyed reports whether the node has been destroyed.
func (n *Node) IsDestroyed() bool { return n.ActiveDegree == Destroyed }

// IsOccupied reports whether an agent currently stands on the node.
func (n *Node) IsOccupied() bool { return n.Occupant != NoAgent }

// Link points slot dir at target. Declaring the same direction twice
// keeps the last target.
func (n *Node) Link(dir Direction, target int) {
	prev := n.Neighbors[dir]
	n.Neighbors[dir] = target
	if prev == NoNode {
		n.ActiveDegree++
		n.ValidNeighbors = append(n.ValidNeighbors, target)
		return
	}
	for i, v := range n.ValidNeighbors {
		if v == prev {
			n.ValidNeighbors[i] = target
			return
		}
	}
}

// Sever empties every slot that points at target and returns how many
// slots were cleared. A node without a back-reference is left untouched.
func (n *Node) Sever(target int) int {
	if n.IsDestroyed() {
		return 0
	}
	severed := 0
	for i, v := range n.Neighbors {
		if v != target {
			continue
		}
		n.Neighbors[i] = NoNode
		n.ActiveDegree--
		n.dropValid(target)
		severed++
	}
	return severed
}

func (n *Node) dropValid(target int) {
	for i, v := range n.ValidNeighbors {
		if v == target {
			last := len(n.ValidNeighbors) - 1
			n.ValidNeighbors[i] = n.ValidNeighbors[last]
			n.ValidNeighbors = n.ValidNeighbors[:last]
			return
		}
	}
}

// MarkDestroyed puts the node in its terminal state and returns the
// neighbor slots it held just before destruction.
func (n *Node) MarkDestroyed() [NumDirections]int {
	former := n.Neighbors
	n.ActiveDegree = Destroyed
	n.Occupant = NoAgent
	n.ValidNeighbors = nil
	n.Neighbors = [NumDirections]int{NoNode, NoNode, NoNode, NoNode}
	return former
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	c := n
	if n.ValidNeighbors != nil {
		c.ValidNeighbors = append(make([]int, 0, len(n.ValidNeighbors)), n.ValidNeighbors...)
	}
	return c
}
