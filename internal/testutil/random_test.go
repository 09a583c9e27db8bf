package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScriptedSourceReplaysValues(t *testing.T) {
	src := NewScriptedSource(0, 3, 1)

	require.Equal(t, 0, src.IntN(1))
	require.Equal(t, 3, src.IntN(4))
	require.Equal(t, 1, src.IntN(2))
	require.Zero(t, src.Remaining())
}

func TestScriptedSourcePanicsOutOfRange(t *testing.T) {
	src := NewScriptedSource(5)
	require.Panics(t, func() { src.IntN(5) })
}

func TestScriptedSourcePanicsWhenExhausted(t *testing.T) {
	src := NewScriptedSource()
	require.Panics(t, func() { src.IntN(3) })
}
