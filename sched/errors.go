package sched

import "errors"

// Precondition violations. All three are fatal per spec: they indicate a
// sizing or usage bug rather than a recoverable runtime condition, so Run
// stops the whole scheduler and surfaces the first one it sees.
var (
	ErrFiberPoolExhausted      = errors.New("sched: fiber pool exhausted")
	ErrCounterWaitersExhausted = errors.New("sched: counter waiter slots exhausted")
	ErrWaitOffFiber            = errors.New("sched: WaitForCounter called off-fiber")
	ErrTaskPanicked            = errors.New("sched: task panicked")
)
