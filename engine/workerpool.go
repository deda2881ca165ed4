package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/hallaphys/ppar/queue"
)

// workQueue carries borrowed Contexts between pipeline stages: reader
// -> worker pool -> sequencer/barrier -> writer.
type workQueue = queue.Queue[*Context]

// WorkerPool runs NumThreads goroutines, each pulling one Context at a
// time from in, analyzing it, and pushing it to out. It is the
// pipeline's only CPU-parallel stage (spec.md §4.4, §5).
//
// Unlike the teacher's fixedWorkerPool, Run here joins on a
// sync.WaitGroup that is Added before the workers start and Done'd
// inside each spawned goroutine, so Run cannot return before every
// worker has actually finished (see DESIGN.md, engine entry).
type WorkerPool struct {
	n   int
	in  *workQueue
	out *workQueue

	// jitterMicros, if > 0, adds an average random delay of this many
	// microseconds per event, simulating variable analysis cost
	// (spec.md §6, the -y flag).
	jitterMicros int
}

// NewWorkerPool builds a pool of n workers reading from in and writing
// completed Contexts to out.
func NewWorkerPool(n int, in, out *workQueue) *WorkerPool {
	return &WorkerPool{n: n, in: in, out: out}
}

// WithJitter sets the per-event average random delay and returns p for
// chaining.
func (p *WorkerPool) WithJitter(micros int) *WorkerPool {
	p.jitterMicros = micros
	return p
}

// Run starts all workers and blocks until in is closed and drained,
// then closes out.
func (p *WorkerPool) Run() {
	var wg sync.WaitGroup
	wg.Add(p.n)
	for i := 0; i < p.n; i++ {
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		go func(rng *rand.Rand) {
			defer wg.Done()
			for {
				ctx, ok := p.in.WaitAndPop()
				if !ok {
					return
				}
				if p.jitterMicros > 0 {
					time.Sleep(time.Duration(rng.ExpFloat64()*float64(p.jitterMicros)) * time.Microsecond)
				}
				start := time.Now()
				ctx.Analyze()
				ctx.TimeSpent += time.Since(start)
				p.out.Push(ctx)
			}
		}(rng)
	}
	wg.Wait()
	p.out.Close()
}
