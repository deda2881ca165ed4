package engine

import (
	"bytes"
	"encoding/binary"

	"github.com/hallaphys/ppar/queue"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(WriterTestSuite))

type WriterTestSuite struct{}

func (s *WriterTestSuite) TestWriterWritesHeaderOnceThenRecords(c *gc.C) {
	pool, err := NewContextPool(2, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)

	in := queue.New[*Context]()
	for i := 1; i <= 2; i++ {
		ctx, ok := pool.Acquire()
		c.Assert(ok, gc.Equals, true)
		ctx.Reset(uint64(i), buildEvent(1, map[uint16][]float64{1: {float64(i)}}))
		ctx.Analyze()
		in.Push(ctx)
	}
	in.Close()

	var buf bytes.Buffer
	w := NewWriter(&buf, false, in, pool, nil, nil)
	c.Assert(w.Run(), gc.IsNil)
	c.Assert(w.NumWritten, gc.Equals, 2)
	c.Assert(w.NumFailed, gc.Equals, 0)

	nvars := binary.LittleEndian.Uint32(buf.Bytes()[0:4])
	c.Assert(int(nvars) > 1, gc.Equals, true)
}

func (s *WriterTestSuite) TestWriterSkipsFailedEvents(c *gc.C) {
	pool, err := NewContextPool(1, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)

	in := queue.New[*Context]()
	ctx, ok := pool.Acquire()
	c.Assert(ok, gc.Equals, true)
	ctx.Reset(1, []byte{1, 2})
	ctx.Analyze()
	c.Assert(ctx.Failed, gc.Equals, true)
	in.Push(ctx)
	in.Close()

	var buf bytes.Buffer
	w := NewWriter(&buf, false, in, pool, nil, nil)
	c.Assert(w.Run(), gc.IsNil)
	c.Assert(w.NumWritten, gc.Equals, 0)
	c.Assert(w.NumFailed, gc.Equals, 1)
}

func (s *WriterTestSuite) TestWriterGzipsWhenRequested(c *gc.C) {
	pool, err := NewContextPool(1, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)

	in := queue.New[*Context]()
	ctx, ok := pool.Acquire()
	c.Assert(ok, gc.Equals, true)
	ctx.Reset(1, buildEvent(1, map[uint16][]float64{1: {1}}))
	ctx.Analyze()
	in.Push(ctx)
	in.Close()

	var buf bytes.Buffer
	w := NewWriter(&buf, true, in, pool, nil, nil)
	c.Assert(w.Run(), gc.IsNil)
	// gzip stream starts with the magic header bytes 0x1f 0x8b.
	c.Assert(buf.Bytes()[0], gc.Equals, byte(0x1f))
	c.Assert(buf.Bytes()[1], gc.Equals, byte(0x8b))
}
