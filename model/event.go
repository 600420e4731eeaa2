package model

// DestructionEvent records a collision: AgentA moved onto Node while
// AgentB already stood there. Both died and the node was destroyed.
type DestructionEvent struct {
	Node   int
	AgentA int
	AgentB int
}
