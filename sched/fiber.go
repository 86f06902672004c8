package sched

import (
	"context"
	"fmt"

	"go.uber.org/atomic"
)

type outcomeKind int

const (
	outcomeFinished outcomeKind = iota
	outcomeParked
)

type fiberOutcome struct {
	kind    outcomeKind
	err     error
	counter *Counter // set when kind == outcomeParked
	target  int64    // set when kind == outcomeParked
}

type fiberJob struct {
	run func() error
}

// Fiber is a reified, suspendable execution context for one task at a time.
// Rather than a hand-rolled stack buffer plus saved register state, a Fiber
// here is a dedicated, long-lived goroutine gated by three channels (jobs
// and yieldBack are unbuffered rendezvous channels, resumeCh holds one
// resume token): switch_to becomes "hand the goroutine a job and block
// until it hands control back." Blocking inside WaitForCounter therefore parks only
// this goroutine, never the OS thread driving it — the Go runtime's own
// scheduler is what lets the parked fiber resume on any worker once woken,
// which is exactly the migration and memory-fence guarantee spec §4.1
// requires from switch_to, without needing a per-architecture assembly
// shim.
type Fiber struct {
	id        uint64
	jobs      chan fiberJob
	yieldBack chan fiberOutcome
	resumeCh  chan error
	running   atomic.Bool
	stack     []byte
}

func newFiber(id uint64, stackSize int) *Fiber {
	f := &Fiber{
		id:        id,
		jobs:      make(chan fiberJob),
		yieldBack: make(chan fiberOutcome),
		resumeCh:  make(chan error, 1),
		stack:     make([]byte, stackSize),
	}
	go f.loop()
	return f
}

// ID returns a stable identifier, useful for logs and metrics labels.
func (f *Fiber) ID() uint64 { return f.id }

// Stack returns this fiber's private scratch buffer, sized by
// Options.FiberStackSize. Go doesn't need it for control flow — the
// goroutine owns its own growable stack — but task bodies that want
// per-fiber scratch space without allocating on every call can use it.
func (f *Fiber) Stack() []byte { return f.stack }

func (f *Fiber) loop() {
	for job := range f.jobs {
		if !f.running.CAS(false, true) {
			panic(fmt.Sprintf("sched: fiber %d resumed while already running", f.id))
		}
		err := job.run()
		f.running.Store(false)
		f.yieldBack <- fiberOutcome{kind: outcomeFinished, err: err}
	}
}

type fiberCtxKey struct{}

func withFiber(ctx context.Context, f *Fiber) context.Context {
	return context.WithValue(ctx, fiberCtxKey{}, f)
}

func fiberFromContext(ctx context.Context) (*Fiber, bool) {
	f, ok := ctx.Value(fiberCtxKey{}).(*Fiber)
	return f, ok
}

// FiberStack returns the calling task's private scratch buffer. It panics
// if ctx wasn't handed to the task body by this package, the same
// off-fiber misuse WaitForCounter treats as a fatal precondition
// violation elsewhere.
func FiberStack(ctx context.Context) []byte {
	f, ok := fiberFromContext(ctx)
	if !ok {
		panic("sched: FiberStack called off-fiber")
	}
	return f.stack
}

func runTask(ctx context.Context, s *Scheduler, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	t.Fn(ctx, s, t.Arg)
	return nil
}
