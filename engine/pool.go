package engine

import (
	"github.com/hallaphys/ppar/detect"
	"github.com/hallaphys/ppar/queue"
)

// ContextPool is the fixed-size free-list of Contexts that bounds how
// many events may be in flight at once: exactly N, N = worker count
// (spec.md §4.2). The reader borrows a Context for each event it
// loads and the writer returns it once that event is written; the
// reader blocks on Acquire when the pool is exhausted, giving the
// pipeline its backpressure.
type ContextPool struct {
	free *queue.Queue[*Context]
}

// NewContextPool builds a pool of n ready Contexts, each running its
// own independent set of detector instances built from the same
// configuration and bound to the same output patterns (spec.md §9:
// detectors are constructed per Context, never cloned or shared).
func NewContextPool(n int, detectors []detect.Config, patterns []string) (*ContextPool, error) {
	p := &ContextPool{free: queue.New[*Context]()}
	for i := 0; i < n; i++ {
		ctx := NewContext(i)
		if err := ctx.Init(detectors, patterns); err != nil {
			return nil, err
		}
		p.free.Push(ctx)
	}
	return p, nil
}

// Acquire blocks until a Context is available and returns it. ok is
// false only once the pool has been closed and drained, signalling
// pipeline shutdown.
func (p *ContextPool) Acquire() (*Context, bool) {
	return p.free.WaitAndPop()
}

// Release returns ctx to the pool, making it available to the next
// Acquire caller.
func (p *ContextPool) Release(ctx *Context) {
	p.free.Push(ctx)
}

// Close unblocks every pending Acquire call; used during shutdown.
func (p *ContextPool) Close() {
	p.free.Close()
}
