package engine

import (
	"bytes"
	"encoding/binary"

	"github.com/hallaphys/ppar/queue"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ReaderTestSuite))

type ReaderTestSuite struct{}

func (s *ReaderTestSuite) TestReadsAllEventsUntilEOF(c *gc.C) {
	var input bytes.Buffer
	for i := 1; i <= 4; i++ {
		input.Write(buildRecord(1, map[uint16][]float64{1: {float64(i)}}))
	}

	pool, err := NewContextPool(2, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)
	work := queue.New[*Context]()

	// Drain work concurrently so Acquire never blocks past the pool size.
	go func() {
		for {
			ctx, ok := work.WaitAndPop()
			if !ok {
				return
			}
			pool.Release(ctx)
		}
	}()

	reader := NewEventReader(&input, pool, work, nil, 0, 0, nil)
	n, err := reader.Run()
	c.Assert(err, gc.IsNil)
	c.Assert(n, gc.Equals, 4)
}

func (s *ReaderTestSuite) TestStopsAtNevMax(c *gc.C) {
	var input bytes.Buffer
	for i := 1; i <= 10; i++ {
		input.Write(buildRecord(1, map[uint16][]float64{1: {float64(i)}}))
	}

	pool, err := NewContextPool(3, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)
	work := queue.New[*Context]()

	// Drain work concurrently so Acquire never blocks past the pool size.
	go func() {
		for {
			ctx, ok := work.WaitAndPop()
			if !ok {
				return
			}
			pool.Release(ctx)
		}
	}()

	reader := NewEventReader(&input, pool, work, nil, 3, 0, nil)
	n, err := reader.Run()
	c.Assert(err, gc.IsNil)
	c.Assert(n, gc.Equals, 3)
}

func (s *ReaderTestSuite) TestTruncatedStreamIsError(c *gc.C) {
	input := bytes.NewBuffer([]byte{10, 0, 0, 0, 1, 2})

	pool, err := NewContextPool(1, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)
	work := queue.New[*Context]()

	reader := NewEventReader(input, pool, work, nil, 0, 0, nil)
	_, err = reader.Run()
	c.Assert(err, gc.NotNil)
}

func (s *ReaderTestSuite) TestLengthBelowMinimumIsError(c *gc.C) {
	// Declares a 6-byte record, below the 8-byte header minimum.
	input := bytes.NewBuffer([]byte{6, 0, 0, 0, 1, 2})

	pool, err := NewContextPool(1, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)
	work := queue.New[*Context]()

	reader := NewEventReader(input, pool, work, nil, 0, 0, nil)
	_, err = reader.Run()
	c.Assert(err, gc.NotNil)
}

func (s *ReaderTestSuite) TestLengthAboveMaxEventSizeIsErrorWithoutAllocating(c *gc.C) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], MaxEventSize+1)
	input := bytes.NewBuffer(lenBuf[:])

	pool, err := NewContextPool(1, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)
	work := queue.New[*Context]()

	reader := NewEventReader(input, pool, work, nil, 0, 0, nil)
	n, err := reader.Run()
	c.Assert(err, gc.NotNil)
	c.Assert(n, gc.Equals, 0)
}
