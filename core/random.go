package core

import (
	"math/rand/v2"
	"time"
)

// RandomSource is the uniform source the engine and placement draw from.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	// IntN returns a uniform integer in [0, n). n must be > 0.
	IntN(n int) int
}

// NewRandomSource returns a PCG-backed source. A zero seed is replaced
// by a time-derived one.
func NewRandomSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
