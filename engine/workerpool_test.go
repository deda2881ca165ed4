package engine

import (
	"github.com/hallaphys/ppar/queue"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(WorkerPoolTestSuite))

type WorkerPoolTestSuite struct{}

func (s *WorkerPoolTestSuite) TestWorkerPoolAnalyzesEveryContext(c *gc.C) {
	in := queue.New[*Context]()
	out := queue.New[*Context]()

	const n = 5
	for i := 0; i < n; i++ {
		ctx := NewContext(i)
		c.Assert(ctx.Init(statsConfigs(), []string{"detA.*"}), gc.IsNil)
		ctx.Reset(uint64(i+1), buildEvent(1, map[uint16][]float64{1: {1, 2, 3}}))
		in.Push(ctx)
	}
	in.Close()

	pool := NewWorkerPool(3, in, out)
	pool.Run()

	var got int
	for {
		ctx, ok := out.WaitAndPop()
		if !ok {
			break
		}
		c.Assert(ctx.Failed, gc.Equals, false)
		got++
	}
	c.Assert(got, gc.Equals, n)
}
