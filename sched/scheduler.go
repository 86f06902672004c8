package sched

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Options configures a Scheduler. Zero-valued fields fall back to the
// defaults spec §6 names.
type Options struct {
	// FiberPoolSize caps the number of simultaneously in-flight tasks
	// (running or parked), one per worker plus however many may be parked
	// at once. Default 128.
	FiberPoolSize int
	// FiberStackSize is advisory scratch-buffer size handed to task bodies
	// via Fiber.Stack-equivalent helpers; Go goroutines grow their own
	// stacks, so this only sizes an optional per-fiber scratch buffer.
	// Default 512KiB.
	FiberStackSize int
	// WorkerThreadCount is the number of OS-thread-pinned worker
	// goroutines. Default runtime.NumCPU().
	WorkerThreadCount int
	// TaskQueueInitialCapacity preallocates the task queue's backing slice.
	TaskQueueInitialCapacity int
	// IdleBackoff is how long a worker sleeps after finding no ready
	// fiber and no queued task, per the "short backoff" option in §4.5.
	IdleBackoff time.Duration
	// Logger receives scheduler lifecycle and precondition-violation
	// events. Defaults to a no-op logger so library consumers aren't
	// forced into a logging backend.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.FiberPoolSize <= 0 {
		o.FiberPoolSize = 128
	}
	if o.FiberStackSize <= 0 {
		o.FiberStackSize = 512 * 1024
	}
	if o.WorkerThreadCount <= 0 {
		o.WorkerThreadCount = runtime.NumCPU()
	}
	if o.TaskQueueInitialCapacity <= 0 {
		o.TaskQueueInitialCapacity = 256
	}
	if o.IdleBackoff <= 0 {
		o.IdleBackoff = 50 * time.Microsecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// MetricsSink receives scheduler lifecycle events. Implementations must
// not block; the scheduler calls these inline on the hot path. See
// package metrics for the Prometheus-backed implementation.
type MetricsSink interface {
	TaskEnqueued()
	TaskCompleted()
	FiberParked()
	FiberResumed()
}

// Scheduler owns the worker goroutines, the task queue, the fiber pool and
// the ready list. It is the only way application code submits work or
// waits on a dependency counter.
type Scheduler struct {
	opts   Options
	queue  *TaskQueue
	pool   *FiberPool
	ready  *ReadyList
	logger *zap.Logger
	runID  string

	pendingTasks atomic.Int64
	shutdown     atomic.Bool
	fatalErr     atomic.Error
	fatalOnce    sync.Once

	workers sync.WaitGroup
	metrics MetricsSink
}

// New constructs a Scheduler without starting it. Call Run to begin
// executing work; a Scheduler is single-use, matching the original
// library's "fresh Run per invocation" contract (spec §1 Non-goals:
// no persistent task graphs across Run invocations).
func New(opts Options) *Scheduler {
	opts = opts.withDefaults()
	s := &Scheduler{
		opts:   opts,
		queue:  newTaskQueue(opts.TaskQueueInitialCapacity),
		ready:  newReadyList(),
		logger: opts.Logger,
		runID:  uuid.NewString(),
	}
	s.pool = newFiberPool(opts.FiberPoolSize, opts.FiberStackSize)
	return s
}

// UseMetrics attaches a metrics sink. Must be called before Run.
func (s *Scheduler) UseMetrics(m MetricsSink) { s.metrics = m }

// NewCounter creates a Counter wired to this scheduler's Ready List.
func (s *Scheduler) NewCounter() *Counter { return &Counter{ready: s.ready} }

// AddTasks publishes count = len(tasks) into counter (if non-nil) before
// pushing any task, so a decrement-to-zero race can never outrun the
// enqueue (spec §4.5). Safe to call from any task body or from the thread
// that calls Run. The tasks slice may be reused or freed immediately after
// this returns. Each task decrements counter by one when its body returns.
func (s *Scheduler) AddTasks(tasks []Task, counter *Counter) {
	if counter != nil {
		counter.Store(int64(len(tasks)))
	}
	s.pendingTasks.Add(int64(len(tasks)))
	for _, t := range tasks {
		if counter != nil {
			fn := t.Fn
			t.Fn = func(ctx context.Context, sc *Scheduler, arg interface{}) {
				defer counter.FetchSub(1)
				fn(ctx, sc, arg)
			}
		}
		s.queue.Push(t)
		if s.metrics != nil {
			s.metrics.TaskEnqueued()
		}
	}
}

// AddTasksWithBlob pairs each function with a caller-owned scratch buffer,
// mirroring the original library's void*+size argument convention used
// throughout its fan-out benchmarks. blobs may be shorter than fns; the
// remaining tasks get a nil Arg.
func (s *Scheduler) AddTasksWithBlob(fns []TaskFunc, blobs [][]byte, counter *Counter) {
	tasks := make([]Task, len(fns))
	for i, fn := range fns {
		tasks[i] = Task{Fn: fn}
		if i < len(blobs) {
			tasks[i].Arg = blobs[i]
		}
	}
	s.AddTasks(tasks, counter)
}

// WaitForCounter suspends the calling task until counter reaches target.
// It must be called from within a running task (i.e. on a fiber owned by
// this scheduler); calling it from any other goroutine is a fatal
// precondition violation. If the counter already holds target, it returns
// immediately without parking the fiber (spec scenario S6).
//
// The waiter slot is installed by the driving worker, not here, strictly
// after it has received this fiber's parked outcome (see handleOutcome).
// Installing it here instead would make the fiber eligible for the Ready
// List — and therefore for a concurrent driveResume on another worker —
// before this goroutine has finished sending on yieldBack, racing two
// workers to receive on the same channel.
func (s *Scheduler) WaitForCounter(ctx context.Context, c *Counter, target int64) error {
	f, ok := fiberFromContext(ctx)
	if !ok {
		err := ErrWaitOffFiber
		s.reportFatal(err)
		return err
	}
	if c.Load() == target {
		return nil
	}

	f.running.Store(false)
	f.yieldBack <- fiberOutcome{kind: outcomeParked, counter: c, target: target}
	err := <-f.resumeCh
	if !f.running.CAS(false, true) {
		panic(fmt.Sprintf("sched: fiber %d resumed while already running", f.id))
	}
	return err
}

func (s *Scheduler) reportFatal(err error) {
	s.fatalOnce.Do(func() {
		s.fatalErr.Store(err)
		s.logger.Error("fatal precondition violation", zap.Error(err))
	})
	s.shutdownNow()
}

// shutdownNow tells every worker to exit its loop once it next checks, the
// Go-native stand-in for the original's IsRunning atomic flag flip. Not
// exposed publicly: Run calls it on a clean finish, and reportFatal calls it
// on a fatal precondition violation.
func (s *Scheduler) shutdownNow() { s.shutdown.Store(true) }

// Run starts WorkerThreadCount worker goroutines, enqueues mainTask, and
// blocks until mainTask and everything it transitively scheduled has run
// to completion (or until a fatal precondition violation aborts the run).
// After a clean finish every fiber is back in the pool; after a fatal abort,
// fibers that were parked at that moment stay parked. Every worker has
// exited either way.
func (s *Scheduler) Run(ctx context.Context, mainTask Task) error {
	s.logger.Info("scheduler starting",
		zap.String("run_id", s.runID),
		zap.Int("workers", s.opts.WorkerThreadCount),
		zap.Int("fiber_pool_size", s.opts.FiberPoolSize),
	)

	s.workers.Add(s.opts.WorkerThreadCount)
	for i := 0; i < s.opts.WorkerThreadCount; i++ {
		go func(id int) {
			defer s.workers.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			s.workerLoop(ctx, id)
		}(i)
	}

	s.AddTasks([]Task{mainTask}, nil)

	s.awaitQuiescence()
	s.shutdownNow()
	s.workers.Wait()

	err := s.fatalErr.Load()
	s.logger.Info("scheduler stopped", zap.String("run_id", s.runID), zap.Error(err))
	return err
}

func (s *Scheduler) awaitQuiescence() {
	for s.pendingTasks.Load() != 0 && s.fatalErr.Load() == nil {
		time.Sleep(s.opts.IdleBackoff)
	}
}

// workerLoop is the per-worker main loop of spec §4.5: ready fibers take
// priority over fresh tasks, and an idle worker backs off briefly rather
// than busy-spinning.
func (s *Scheduler) workerLoop(ctx context.Context, id int) {
	for {
		if s.shutdown.Load() {
			return
		}

		if f, ok := s.ready.tryPop(); ok {
			s.driveResume(f)
			continue
		}

		if t, ok := s.queue.TryPop(); ok {
			f, ok := s.pool.acquire()
			if !ok {
				s.reportFatal(fmt.Errorf("%w: size %d, worker %d", ErrFiberPoolExhausted, s.opts.FiberPoolSize, id))
				continue
			}
			s.driveNew(ctx, f, t)
			continue
		}

		time.Sleep(s.opts.IdleBackoff)
	}
}

// driveNew hands a freshly-popped task to an idle fiber and blocks until
// that fiber either finishes the task or parks on a counter. This call is
// the Go-goroutine analogue of switch_to(new_fiber).
func (s *Scheduler) driveNew(ctx context.Context, f *Fiber, t Task) {
	taskCtx := withFiber(ctx, f)
	f.jobs <- fiberJob{run: func() error { return runTask(taskCtx, s, t) }}
	s.handleOutcome(f)
}

// driveResume wakes a previously-parked fiber exactly where it suspended
// and blocks until it finishes or parks again. The fiber may be resumed by
// a different worker than the one that parked it — that migration is what
// makes WaitForCounter cheap and correct across the whole pool.
func (s *Scheduler) driveResume(f *Fiber) {
	if s.metrics != nil {
		s.metrics.FiberResumed()
	}
	f.resumeCh <- nil
	s.handleOutcome(f)
}

// handleOutcome drives f until it either finishes its task or successfully
// parks on a counter. A parked outcome whose waiter slot turns out to be
// already satisfied, or whose counter has no free slot, is resolved right
// here by resuming f again immediately — the caller never sees those as a
// suspension, only as (possibly prolonged) progress toward outcomeFinished.
// Only once addWaiter actually installs a slot does this return, and only
// then does f become eligible for another worker to pop off the Ready List
// and drive — addWaiter runs after this goroutine is done receiving on
// f.yieldBack, never before, which is what rules out two workers racing to
// receive the same fiber's next outcome.
func (s *Scheduler) handleOutcome(f *Fiber) {
	for {
		outcome := <-f.yieldBack
		switch outcome.kind {
		case outcomeFinished:
			s.pool.release(f)
			s.pendingTasks.Add(-1)
			if s.metrics != nil {
				s.metrics.TaskCompleted()
			}
			if outcome.err != nil {
				s.logger.Warn("task returned an error", zap.Error(outcome.err))
			}
			return

		case outcomeParked:
			switch outcome.counter.addWaiter(f, outcome.target) {
			case waiterAlreadySatisfied:
				f.resumeCh <- nil
			case waiterSlotsExhausted:
				err := fmt.Errorf("%w: counter already has %d waiters", ErrCounterWaitersExhausted, CounterMaxWaiters)
				s.reportFatal(err)
				f.resumeCh <- err
			default: // waiterAdded
				if s.metrics != nil {
					s.metrics.FiberParked()
				}
				return
			}
		}
	}
}

// Stats is a point-in-time snapshot of scheduler occupancy, used by the
// metrics collector and the debug HTTP endpoint.
type Stats struct {
	RunID               string
	WorkerThreads       int
	FiberPoolSize       int
	FibersInUse         int
	TaskQueueLen        int
	TaskQueueHighWater  int
	ReadyQueueLen       int
	CounterWaitersBound int
}

// Stats returns a snapshot of current occupancy across the queue, the
// ready list, and the fiber pool.
func (s *Scheduler) Stats() Stats {
	qlen, hw := s.queue.Stats()
	return Stats{
		RunID:               s.runID,
		WorkerThreads:       s.opts.WorkerThreadCount,
		FiberPoolSize:       s.pool.Size(),
		FibersInUse:         s.pool.InUse(),
		TaskQueueLen:        qlen,
		TaskQueueHighWater:  hw,
		ReadyQueueLen:       s.ready.Len(),
		CounterWaitersBound: CounterMaxWaiters,
	}
}
