package core

// ActiveSet is the dense working set of node indices that currently
// host a live agent. Entries are unordered; removal swaps the last entry
// into the vacated position.
type ActiveSet struct {
	entries []int
}

// NewActiveSet builds a set from the given node positions. The slice is
// copied.
func NewActiveSet(positions []int) *ActiveSet {
	return &ActiveSet{entries: append(make([]int, 0, len(positions)), positions...)}
}

// Len returns the number of entries.
func (s *ActiveSet) Len() int { return len(s.entries) }

// At returns the node index stored at position pos.
func (s *ActiveSet) At(pos int) int { return s.entries[pos] }

// PickRandom returns a uniformly chosen position and the node index it
// holds. The set must be non-empty.
func (s *ActiveSet) PickRandom(rng RandomSource) (pos, node int) {
	pos = rng.IntN(len(s.entries))
	return pos, s.entries[pos]
}

// Remove drops the entry at pos in O(1). The entry that was last now
// lives at pos.
func (s *ActiveSet) Remove(pos int) {
	last := len(s.entries) - 1
	s.entries[pos] = s.entries[last]
	s.entries = s.entries[:last]
}

// Update replaces the entry at pos in place.
func (s *ActiveSet) Update(pos, node int) { s.entries[pos] = node }

// Positions returns a copy of the current entries.
func (s *ActiveSet) Positions() []int {
	return append([]int(nil), s.entries...)
}
