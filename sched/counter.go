package sched

import (
	"sync"

	"go.uber.org/atomic"
)

// CounterMaxWaiters bounds how many fibers may wait on one Counter at once.
// This is a deliberate, documented bound (spec §3/§9 Open Question) rather
// than a silently-widened dynamic list: dependency fan-in past this count
// is treated as a sizing bug in the caller's task graph, not absorbed.
const CounterMaxWaiters = 4

type waitResult int

const (
	waiterAdded waitResult = iota
	waiterAlreadySatisfied
	waiterSlotsExhausted
)

type waiterSlot struct {
	inUse  bool
	fiber  *Fiber
	target int64
}

// Counter is an atomic dependency counter with a small fixed set of waiter
// slots. Changing its value wakes any waiter whose target the new value
// matches, moving that fiber onto the scheduler's Ready List.
//
// modify and addWaiter share one mutex, so they can never interleave: a
// waiter installed while holding the lock is guaranteed to be visible to
// the very next modify call, which is what rules out the lost-wakeup
// window spec §4.3 calls out. This is the "lightweight mutex" option from
// spec §9, not the lock-free generation-counter one — both are sanctioned,
// and the mutex is simpler to get right for a waiter count this small.
type Counter struct {
	value atomic.Int64
	mu    sync.Mutex
	slots [CounterMaxWaiters]waiterSlot
	ready *ReadyList
}

// Load returns the current value.
func (c *Counter) Load() int64 { return c.value.Load() }

// Store sets the value, waking any waiter whose target now matches — the
// same scan FetchAdd/FetchSub perform. Most callers use it to seed a
// counter before AddTasks publishes the batch that will decrement it, when
// there is no waiter yet to wake, but spec.md §4.3 treats store as just
// another mutation for wake purposes, so a Store onto an already-parked
// counter cannot strand its waiter.
func (c *Counter) Store(v int64) {
	c.mu.Lock()
	c.value.Store(v)
	c.wakeLocked(v)
	c.mu.Unlock()
}

// FetchAdd atomically adds delta and returns the value from before the
// add, waking any waiter whose target now matches.
func (c *Counter) FetchAdd(delta int64) int64 { return c.modify(delta) }

// FetchSub atomically subtracts delta and returns the value from before
// the subtraction, waking any waiter whose target now matches.
func (c *Counter) FetchSub(delta int64) int64 { return c.modify(-delta) }

func (c *Counter) modify(delta int64) int64 {
	c.mu.Lock()
	old := c.value.Load()
	next := old + delta
	c.value.Store(next)
	c.wakeLocked(next)
	c.mu.Unlock()
	return old
}

func (c *Counter) wakeLocked(value int64) {
	for i := range c.slots {
		s := &c.slots[i]
		if s.inUse && s.target == value {
			s.inUse = false
			f := s.fiber
			s.fiber = nil
			c.ready.push(f)
		}
	}
}

func (c *Counter) addWaiter(f *Fiber, target int64) waitResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value.Load() == target {
		return waiterAlreadySatisfied
	}
	for i := range c.slots {
		if !c.slots[i].inUse {
			c.slots[i] = waiterSlot{inUse: true, fiber: f, target: target}
			return waiterAdded
		}
	}
	return waiterSlotsExhausted
}

// NumWaiters reports how many waiter slots are currently occupied.
func (c *Counter) NumWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.slots {
		if s.inUse {
			n++
		}
	}
	return n
}
