package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFiberPoolAcquireReleaseConserved(t *testing.T) {
	p := newFiberPool(4, 4096)
	require.Equal(t, 0, p.InUse())

	var acquired []*Fiber
	for i := 0; i < 4; i++ {
		f, ok := p.acquire()
		require.True(t, ok)
		acquired = append(acquired, f)
	}
	require.Equal(t, 4, p.InUse())

	_, ok := p.acquire()
	require.False(t, ok, "pool must report exhaustion rather than grow")

	for _, f := range acquired {
		p.release(f)
	}
	require.Equal(t, 0, p.InUse())

	f, ok := p.acquire()
	require.True(t, ok)
	require.Contains(t, acquired, f, "released fibers must be reused, not recreated")
}

func TestFiberPoolNeverHandsOutSameFiberTwice(t *testing.T) {
	p := newFiberPool(8, 4096)
	seen := make(map[uint64]bool)
	for i := 0; i < 8; i++ {
		f, ok := p.acquire()
		require.True(t, ok)
		require.False(t, seen[f.ID()])
		seen[f.ID()] = true
	}
}
