package engine

import (
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(PoolTestSuite))

type PoolTestSuite struct{}

func (s *PoolTestSuite) TestNewContextPoolSizeAndRelease(c *gc.C) {
	pool, err := NewContextPool(3, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)

	var acquired []*Context
	for i := 0; i < 3; i++ {
		ctx, ok := pool.Acquire()
		c.Assert(ok, gc.Equals, true)
		acquired = append(acquired, ctx)
	}

	done := make(chan struct{})
	go func() {
		ctx, ok := pool.Acquire()
		c.Assert(ok, gc.Equals, true)
		c.Assert(ctx, gc.NotNil)
		close(done)
	}()

	pool.Release(acquired[0])
	<-done
}

func (s *PoolTestSuite) TestCloseUnblocksAcquire(c *gc.C) {
	pool, err := NewContextPool(1, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)
	_, ok := pool.Acquire()
	c.Assert(ok, gc.Equals, true)

	done := make(chan bool, 1)
	go func() {
		_, ok := pool.Acquire()
		done <- ok
	}()
	pool.Close()
	c.Assert(<-done, gc.Equals, false)
}

func (s *PoolTestSuite) TestNewContextPoolPropagatesInitError(c *gc.C) {
	_, err := NewContextPool(1, statsConfigs(), []string{"nothing.*"})
	c.Assert(err, gc.NotNil)
}
