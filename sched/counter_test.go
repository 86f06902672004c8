package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCounter() *Counter {
	return &Counter{ready: newReadyList()}
}

func TestCounterFetchAddSubReturnsOldValue(t *testing.T) {
	c := newTestCounter()
	c.Store(5)
	old := c.FetchAdd(3)
	require.Equal(t, int64(5), old)
	require.Equal(t, int64(8), c.Load())

	old = c.FetchSub(2)
	require.Equal(t, int64(8), old)
	require.Equal(t, int64(6), c.Load())
}

func TestCounterAddWaiterAlreadySatisfied(t *testing.T) {
	c := newTestCounter()
	c.Store(0)
	f := newFiber(1, 4096)
	require.Equal(t, waiterAlreadySatisfied, c.addWaiter(f, 0))
	require.Equal(t, 0, c.NumWaiters())
}

func TestCounterWakesMatchingWaiterOnModify(t *testing.T) {
	c := newTestCounter()
	c.Store(1)
	f := newFiber(1, 4096)

	require.Equal(t, waiterAdded, c.addWaiter(f, 0))
	require.Equal(t, 1, c.NumWaiters())

	c.FetchSub(1) // 1 -> 0, matches the waiter's target

	woken, ok := c.ready.tryPop()
	require.True(t, ok)
	require.Same(t, f, woken)
	require.Equal(t, 0, c.NumWaiters())
}

func TestCounterStoreWakesMatchingWaiter(t *testing.T) {
	c := newTestCounter()
	c.Store(1)
	f := newFiber(1, 4096)

	require.Equal(t, waiterAdded, c.addWaiter(f, 0))
	require.Equal(t, 1, c.NumWaiters())

	c.Store(0) // reseed straight to the waiter's target, same as FetchSub would

	woken, ok := c.ready.tryPop()
	require.True(t, ok)
	require.Same(t, f, woken)
	require.Equal(t, 0, c.NumWaiters())
}

func TestCounterDoesNotWakeOnNonMatchingModify(t *testing.T) {
	c := newTestCounter()
	c.Store(5)
	f := newFiber(1, 4096)
	require.Equal(t, waiterAdded, c.addWaiter(f, 0))

	c.FetchSub(1) // 5 -> 4, does not match target 0

	_, ok := c.ready.tryPop()
	require.False(t, ok)
	require.Equal(t, 1, c.NumWaiters())
}

func TestCounterWaiterSlotsExhausted(t *testing.T) {
	c := newTestCounter()
	c.Store(100)
	for i := 0; i < CounterMaxWaiters; i++ {
		require.Equal(t, waiterAdded, c.addWaiter(newFiber(uint64(i), 4096), 0))
	}
	require.Equal(t, waiterSlotsExhausted, c.addWaiter(newFiber(999, 4096), 0))
}
