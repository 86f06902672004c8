package sched

import "context"

// TaskFunc is the function half of a Task. It runs on a fiber; the ctx
// passed in carries the identity of that fiber and must be threaded through
// to WaitForCounter if the task needs to park on a dependency counter.
type TaskFunc func(ctx context.Context, s *Scheduler, arg interface{})

// Task is a plain (function, argument) pair. The scheduler copies Tasks by
// value into the queue, never dereferences Arg, and never frees it — the
// submitter owns that memory for as long as it needs to.
type Task struct {
	// Name is optional and used only for logs/traces; the original library
	// threads a name through its profiler spans for the same reason.
	Name string
	Fn   TaskFunc
	Arg  interface{}
}
