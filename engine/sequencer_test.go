package engine

import (
	"github.com/hallaphys/ppar/queue"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(SequencerTestSuite))

type SequencerTestSuite struct{}

func ctxWithSeq(seq uint64) *Context {
	return &Context{EventNo: seq, Seq: seq}
}

func (s *SequencerTestSuite) TestSequencerRestoresOrder(c *gc.C) {
	in := queue.New[*Context]()
	out := queue.New[*Context]()

	in.Push(ctxWithSeq(3))
	in.Push(ctxWithSeq(1))
	in.Push(ctxWithSeq(2))
	in.Close()

	seq := NewOrderingSequencer(in, out)
	seq.Run()

	var order []uint64
	for {
		ctx, ok := out.WaitAndPop()
		if !ok {
			break
		}
		order = append(order, ctx.Seq)
	}
	c.Assert(order, gc.DeepEquals, []uint64{1, 2, 3})
}

func (s *SequencerTestSuite) TestSequencerHandlesGapAtClose(c *gc.C) {
	in := queue.New[*Context]()
	out := queue.New[*Context]()

	in.Push(ctxWithSeq(2))
	in.Push(ctxWithSeq(3))
	in.Close()

	seq := NewOrderingSequencer(in, out)
	seq.Run()

	var order []uint64
	for {
		ctx, ok := out.WaitAndPop()
		if !ok {
			break
		}
		order = append(order, ctx.Seq)
	}
	c.Assert(order, gc.DeepEquals, []uint64{2, 3})
}
