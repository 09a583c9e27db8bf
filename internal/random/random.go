// Package random provides the bounded integer sampling used by the order simulator.
package random

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Source yields integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// New returns a deterministic PCG-backed source for the given seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewTimeSeeded returns a source seeded from the wall clock.
func NewTimeSeeded() *rand.Rand {
	return New(uint64(time.Now().UnixNano()))
}

// Int returns an integer uniformly distributed over the inclusive range [min, max].
// It panics when min > max.
func Int(src Source, min, max int) int {
	if min > max {
		panic(fmt.Sprintf("random: invalid range [%d, %d]", min, max))
	}
	return min + src.IntN(max-min+1)
}
