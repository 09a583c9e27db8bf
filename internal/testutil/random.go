package testutil

import (
	"fmt"
	"sync"
)

// ScriptedSource replays a fixed sequence of IntN results.
//
// Each value is the raw draw in [0, n), not the final sampled value: to force
// random.Int(src, 1, 30) to return 2, script a 1.
//
// It panics when the script is exhausted or a value is out of range for the
// requested n, so a test that drifts from the expected draw order fails loudly.
type ScriptedSource struct {
	mu     sync.Mutex
	values []int
	pos    int
}

func NewScriptedSource(values ...int) *ScriptedSource {
	return &ScriptedSource{values: values}
}

func (s *ScriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.values) {
		panic(fmt.Sprintf("testutil: scripted source exhausted after %d draws", s.pos))
	}
	v := s.values[s.pos]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("testutil: scripted draw %d = %d out of range [0, %d)", s.pos, v, n))
	}
	s.pos++
	return v
}

// Remaining reports how many scripted values have not been consumed.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.pos
}

// FloorSource always returns 0, so random.Int always yields its lower bound.
type FloorSource struct{}

func (FloorSource) IntN(int) int { return 0 }

// CeilSource always returns n-1, so random.Int always yields its upper bound.
type CeilSource struct{}

func (CeilSource) IntN(n int) int { return n - 1 }
