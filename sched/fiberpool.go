package sched

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// FiberPool is a bounded free list of Fibers, sized once at construction.
// acquire never blocks — an exhausted pool is a fatal precondition
// violation (spec §4.4/§4.6), not backpressure the caller should wait out.
type FiberPool struct {
	sem  *semaphore.Weighted
	mu   sync.Mutex
	free []*Fiber
	size int
}

func newFiberPool(size, stackSize int) *FiberPool {
	p := &FiberPool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
		free: make([]*Fiber, 0, size),
	}
	for i := 0; i < size; i++ {
		p.free = append(p.free, newFiber(uint64(i+1), stackSize))
	}
	return p
}

func (p *FiberPool) acquire() (*Fiber, bool) {
	if !p.sem.TryAcquire(1) {
		return nil, false
	}
	p.mu.Lock()
	f := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.mu.Unlock()
	return f, true
}

func (p *FiberPool) release(f *Fiber) {
	p.mu.Lock()
	p.free = append(p.free, f)
	p.mu.Unlock()
	p.sem.Release(1)
}

// InUse reports how many fibers are currently running or parked — the
// complement of the free list.
func (p *FiberPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size - len(p.free)
}

// Size returns the pool's fixed capacity.
func (p *FiberPool) Size() int { return p.size }
