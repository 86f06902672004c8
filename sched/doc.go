// Package sched implements a fiber-based, work-stealing-style task
// scheduler: a fixed pool of worker goroutines pinned one per OS thread
// runs fine-grained tasks on a bounded pool of reusable fibers, so that a
// task blocked on a dependency counter never ties up its worker.
package sched
